package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/carhound/carhound/internal/cache"
	"github.com/carhound/carhound/internal/fetcher"
	"github.com/carhound/carhound/internal/llm"
	"github.com/carhound/carhound/internal/logger"
	"github.com/carhound/carhound/internal/marketplace"
	"github.com/carhound/carhound/internal/output"
	"github.com/carhound/carhound/internal/pipeline"
	"github.com/carhound/carhound/internal/rank"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search listings, filter them and rank the best-value cars",
	Long: `Search AutoTrader.ca for each make/model term, pull every listing's
details (cached for a week), filter by mileage, year and price, then
ask an LLM to shortlist the best-value cars.

Examples:
  # Defaults: four SUV terms around Toronto, under $25,000
  carhound search

  # Answer the criteria interactively
  carhound search --interactive

  # Two terms, wider radius, exported shortlist
  carhound search -t "Mazda CX-5" -t "Subaru Forester" \
      --radius 100 -o shortlist.json --format json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	flags := searchCmd.Flags()

	// Search criteria
	flags.StringSliceP("term", "t", splitTerms(pipeline.DefaultTerms), "make/model search term (can be repeated)")
	flags.String("postal-code", pipeline.DefaultPostalCode, "postal code to search around")
	flags.Int("radius", pipeline.DefaultRadiusKM, "search radius in km")
	flags.Int("max-mileage", pipeline.DefaultMaxMileage, "maximum mileage in km (0=unbounded)")
	flags.String("year-range", pipeline.DefaultYearRange, "inclusive model year range, e.g. 2019-2024 or 2021")
	flags.Float64("max-price", pipeline.DefaultMaxPrice, "maximum price in dollars (0=unbounded)")
	flags.BoolP("interactive", "i", false, "prompt for each criterion on stdin")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: openai, anthropic, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")
	flags.Int("top", rank.DefaultTopN, "shortlist size the model is asked for")
	flags.Int("max-batch", rank.DefaultMaxBatch, "maximum listings sent to the model")

	// Output settings
	flags.StringP("output", "o", "", "also export the shortlist to this file")
	flags.String("format", "json", "export format: json, jsonl, yaml")

	// Fetch settings
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic")
	flags.Duration("timeout", fetcher.DefaultConfig().Timeout, "request timeout")
	flags.Duration("delay", pipeline.DefaultConfig().SearchDelay, "delay between search terms")
	flags.IntP("concurrency", "c", pipeline.DefaultConfig().Concurrency, "concurrent listing fetches")
	flags.Int("max-results", pipeline.DefaultConfig().MaxResults, "results requested per search")

	// Cache settings
	flags.String("cache-dir", "carhound-cache", "directory for cached listing pages")
	flags.Duration("cache-ttl", cache.DefaultTTL, "how long cached listings stay fresh")

	// Bind to viper
	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	criteria, err := buildCriteria(cmd)
	if err != nil {
		logger.Error("invalid search criteria", "error", err)
		return err
	}
	logger.Debug("criteria resolved",
		"terms", criteria.SearchTerms,
		"postal_code", criteria.PostalCode,
		"radius_km", criteria.RadiusKM,
		"max_mileage", criteria.MaxMileage,
		"year_range", criteria.YearRange,
		"max_price", criteria.MaxPrice)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	fetchCfg := fetcher.Config{Timeout: timeout}

	fetchModeStr, _ := cmd.Flags().GetString("fetch-mode")
	var f fetcher.Fetcher
	switch fetchModeStr {
	case "dynamic":
		f, err = fetcher.NewDynamic(fetchCfg)
		if err != nil {
			logger.Error("failed to create dynamic fetcher", "error", err)
			return err
		}
	case "static", "":
		f = fetcher.NewStatic(fetchCfg)
	default:
		return fmt.Errorf("unknown fetch mode: %s (use 'static' or 'dynamic')", fetchModeStr)
	}
	defer func() { _ = f.Close() }()
	logger.Debug("fetcher created", "type", f.Type())

	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	store, err := cache.New(cacheDir, cacheTTL)
	if err != nil {
		logger.Error("failed to create cache", "dir", cacheDir, "error", err)
		return err
	}

	delay, _ := cmd.Flags().GetDuration("delay")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	p := pipeline.New(f, store, pipeline.Config{
		SearchDelay: delay,
		MaxResults:  maxResults,
		Concurrency: concurrency,
	})

	records, err := p.Run(ctx, criteria)
	if err != nil {
		logger.Error("search run failed", "error", err)
		return err
	}
	if n := p.ParseFailures(); n > 0 {
		logger.Warn("some listing pages could not be parsed", "count", n)
	}
	if len(records) == 0 {
		logger.Info("no car data was collected")
		fmt.Println("No car data was collected. Try different terms or a wider radius.")
		return nil
	}
	logger.Info("listings collected", "count", len(records))

	filtered, err := rank.FilterAndRank(records, criteria.MaxMileage, criteria.YearRange, criteria.MaxPrice)
	if err != nil {
		logger.Error("invalid filter configuration", "error", err)
		return err
	}
	if len(filtered) == 0 {
		logger.Info("no cars match the criteria")
		fmt.Println("No cars match your criteria. Try relaxing the limits.")
		return nil
	}
	logger.Info("listings after filtering", "count", len(filtered))

	topN, _ := cmd.Flags().GetInt("top")
	maxBatch, _ := cmd.Flags().GetInt("max-batch")

	shortlist := filtered
	provider, err := buildProvider()
	if err != nil {
		logger.Warn("no ranking provider available, showing filtered results", "error", err)
	} else {
		ranker := rank.NewRanker(provider, rank.WithTopN(topN), rank.WithMaxBatch(maxBatch))
		if ranked := ranker.Rank(ctx, filtered); ranked != nil {
			shortlist = ranked
		} else {
			logger.Warn("ranking failed, showing filtered results")
		}
	}

	output.RenderTable(os.Stdout, shortlist, "Top Car Recommendations")

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		formatStr, _ := cmd.Flags().GetString("format")
		if err := exportShortlist(outPath, output.Format(formatStr), shortlist); err != nil {
			logger.Error("failed to export shortlist", "path", outPath, "error", err)
			return err
		}
		logger.Info("shortlist exported", "path", outPath, "format", formatStr)
	}

	return nil
}

// buildCriteria resolves the search criteria from flags, or from stdin
// prompts when --interactive is set.
func buildCriteria(cmd *cobra.Command) (pipeline.Criteria, error) {
	terms, _ := cmd.Flags().GetStringSlice("term")
	postalCode, _ := cmd.Flags().GetString("postal-code")
	radius, _ := cmd.Flags().GetInt("radius")
	maxMileage, _ := cmd.Flags().GetInt("max-mileage")
	yearRange, _ := cmd.Flags().GetString("year-range")
	maxPrice, _ := cmd.Flags().GetFloat64("max-price")

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		r := bufio.NewReader(os.Stdin)
		terms = splitTerms(promptString(r, "Search terms (comma separated)", strings.Join(terms, ", ")))
		postalCode = promptString(r, "Postal code", postalCode)
		radius = promptInt(r, "Radius (km)", radius)
		maxMileage = promptInt(r, "Max mileage (km, 0=any)", maxMileage)
		yearRange = promptString(r, "Year range (e.g. 2019-2024)", yearRange)
		maxPrice = promptFloat(r, "Max price ($, 0=any)", maxPrice)
	}

	c := pipeline.Criteria{
		SearchTerms: terms,
		PostalCode:  postalCode,
		RadiusKM:    radius,
		MaxMileage:  maxMileage,
		YearRange:   yearRange,
		MaxPrice:    maxPrice,
	}
	return c, c.Validate()
}

// buildProvider creates the ranking LLM provider from flags, config and
// environment.
func buildProvider() (llm.Provider, error) {
	name := viper.GetString("provider")
	apiKey := viper.GetString("api_key")

	if name == "" {
		detected, detectedKey := llm.DetectProvider()
		name = detected
		if apiKey == "" {
			apiKey = detectedKey
		}
		logger.Debug("auto-detected provider", "provider", name)
	}

	model := viper.GetString("model")
	if model == "" {
		model = llm.GetDefaultModel(name)
	}

	cfg := llm.DefaultProviderConfig()
	cfg.APIKey = apiKey
	cfg.Model = model
	cfg.BaseURL = viper.GetString("base_url")

	return llm.NewProvider(name, cfg)
}

func exportShortlist(path string, format output.Format, records []marketplace.ListingRecord) error {
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := output.NewWriter(f, format)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Close()
}

func splitTerms(s string) []string {
	parts := strings.Split(s, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func promptString(r *bufio.Reader, label, def string) string {
	fmt.Printf("%s [%s]: ", label, def)
	line, err := r.ReadString('\n')
	if err != nil {
		return def
	}
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}

func promptInt(r *bufio.Reader, label string, def int) int {
	s := promptString(r, label, strconv.Itoa(def))
	v, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid number %q, using %d\n", s, def)
		return def
	}
	return v
}

func promptFloat(r *bufio.Reader, label string, def float64) float64 {
	s := promptString(r, label, strconv.FormatFloat(def, 'f', -1, 64))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Printf("Invalid number %q, using %v\n", s, def)
		return def
	}
	return v
}
