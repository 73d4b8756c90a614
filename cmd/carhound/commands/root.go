// Package commands implements the CLI commands for carhound.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "carhound",
	Short: "Used-car marketplace search with LLM-backed ranking",
	Long: `Carhound searches AutoTrader.ca for used cars, filters the listings
against your budget and mileage limits, and asks an LLM to shortlist
the best-value candidates.

Examples:
  # Search with the built-in defaults
  carhound search

  # Custom terms near a Vancouver postal code
  carhound search -t "Mazda CX-5" -t "Subaru Forester" \
      --postal-code "V6B 1A1" --radius 100

  # Tighter budget, export the shortlist as JSON
  carhound search --max-price 20000 --year-range 2021-2024 \
      -o shortlist.json --format json

  # Use local Ollama for ranking
  carhound search -p ollama -m llama3.2`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.carhound.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".carhound")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CARHOUND")
	viper.AutomaticEnv()

	// Also check common API key env vars
	_ = viper.BindEnv("api_key", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
