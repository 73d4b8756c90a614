// Package main is the entry point for the carhound CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/carhound/carhound/cmd/carhound/commands"
)

func main() {
	// Load API keys and overrides from a local .env if present.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
