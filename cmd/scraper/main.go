package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
	"github.com/aluiziolira/go-scrape-listings/scraper"
	"github.com/aluiziolira/go-scrape-listings/store"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type options struct {
	Categories string        `long:"categories" env:"SCRAPER_CATEGORIES" description:"YAML file listing the categories to scrape (defaults to the built-in list)"`
	Pages      int           `long:"pages" env:"SCRAPER_PAGES" default:"2" description:"Pages to scrape per category"`
	BaseURL    string        `long:"base-url" env:"SCRAPER_BASE_URL" default:"https://www.daraz.com.np" description:"Base URL used to absolutise relative links"`
	MinDelay   time.Duration `long:"min-delay" env:"SCRAPER_MIN_DELAY" default:"1s" description:"Minimum delay before each request"`
	MaxDelay   time.Duration `long:"max-delay" env:"SCRAPER_MAX_DELAY" default:"3s" description:"Maximum delay before each request"`
	PageMin    time.Duration `long:"page-delay-min" env:"SCRAPER_PAGE_DELAY_MIN" default:"2s" description:"Minimum delay between pages"`
	PageMax    time.Duration `long:"page-delay-max" env:"SCRAPER_PAGE_DELAY_MAX" default:"4s" description:"Maximum delay between pages"`
	RateLimit  float64       `long:"rate-limit" env:"SCRAPER_RATE_LIMIT" description:"Use a token bucket of N requests/second instead of random delays"`
	Timeout    time.Duration `long:"timeout" env:"SCRAPER_TIMEOUT" default:"30s" description:"Per-attempt request timeout"`
	Attempts   int           `long:"attempts" env:"SCRAPER_ATTEMPTS" default:"3" description:"Attempts per page before giving up"`
	MaxBody    int           `long:"max-body-size" env:"SCRAPER_MAX_BODY_SIZE" description:"Cap on a downloaded page in bytes (0 means unlimited)"`
	Database   string        `long:"db" env:"SCRAPER_DB" default:"daraz_products.sqlite3" description:"SQLite file or postgres:// DSN; recreated on every run"`
	JSONFile   string        `long:"json" env:"SCRAPER_JSON" default:"daraz_products.json" description:"JSON export path"`
	CSVFile    string        `long:"csv" env:"SCRAPER_CSV" default:"daraz_products.csv" description:"CSV export path"`
	XLSXFile   string        `long:"xlsx" env:"SCRAPER_XLSX" description:"Optional spreadsheet export path"`
	DebugDir   string        `long:"debug-dir" env:"SCRAPER_DEBUG_DIR" description:"Directory for raw page dumps"`
	Dedupe     int           `long:"dedupe" env:"SCRAPER_DEDUPE" description:"Drop repeated product URLs, remembering up to N of them"`
	Metrics    string        `long:"metrics-addr" env:"SCRAPER_METRICS_ADDR" description:"Prometheus metrics listen address (e.g. :9090)"`
	Verbose    bool          `short:"v" long:"verbose" env:"SCRAPER_VERBOSE" description:"Enable verbose logging"`
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger, level := newLogger(opts.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg, err := buildConfig(opts)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	os.Exit(run(ctx, cfg, logger))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	slog.Info("starting scrape",
		slog.Int("categories", len(cfg.Categories)),
		slog.Int("pages", cfg.PagesPerCategory),
		slog.String("db", cfg.DatabaseDSN),
	)

	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	return scrape(ctx, cfg, st, logger)
}

// scrape runs the scraper against st and always writes the export files,
// even when the run itself fails before collecting anything.
func scrape(ctx context.Context, cfg *config.Config, st scraper.Store, logger *slog.Logger) int {
	s, err := scraper.NewScraper(cfg, st, scraper.WithLogger(logger))
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return 1
	}

	agg, err := pipeline.NewAggregator(pipeline.Options{
		DedupeMaxSize: cfg.DedupeMaxSize,
		Logger:        logger,
	})
	if err != nil {
		slog.Error("initialising aggregator", slog.Any("error", err))
		return 1
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)

	status := 0
	result, err := s.Run(ctx, agg)
	if err != nil {
		slog.Error("scraping failed, writing empty exports", slog.Any("error", err))
		status = 1
	}
	if err := agg.Close(); err != nil {
		slog.Error("aggregator shutdown failed", slog.Any("error", err))
	}

	writer, err := pipeline.NewExportWriter(cfg.CSVFile, cfg.JSONFile, cfg.XLSXFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		status = 1
	} else if err := agg.Export(writer); err != nil {
		slog.Error("export failed", slog.Any("error", err))
		status = 1
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if result != nil {
		printSummary(result, cfg, agg.GetMetrics())
	}
	return status
}

func buildConfig(opts options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.Categories != "" {
		categories, err := config.LoadCategories(opts.Categories)
		if err != nil {
			return nil, err
		}
		cfg.Categories = categories
	}
	cfg.BaseURL = opts.BaseURL
	cfg.Referer = strings.TrimRight(opts.BaseURL, "/") + "/"
	cfg.PagesPerCategory = opts.Pages
	cfg.MinDelay = opts.MinDelay
	cfg.MaxDelay = opts.MaxDelay
	cfg.PageDelayMin = opts.PageMin
	cfg.PageDelayMax = opts.PageMax
	cfg.RateLimit = opts.RateLimit
	cfg.Timeout = opts.Timeout
	cfg.MaxAttempts = opts.Attempts
	cfg.MaxBodySize = opts.MaxBody
	cfg.DatabaseDSN = opts.Database
	cfg.JSONFile = opts.JSONFile
	cfg.CSVFile = opts.CSVFile
	cfg.XLSXFile = opts.XLSXFile
	cfg.DebugDir = opts.DebugDir
	cfg.DedupeMaxSize = opts.Dedupe
	cfg.MetricsAddr = opts.Metrics
	cfg.Verbose = opts.Verbose
	return cfg, nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(result *models.ScraperResult, cfg *config.Config, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	exported := int64(0)
	if processed, ok := metrics["processed"].(int64); ok {
		exported = processed
	}

	fmt.Printf("  Run ID:        %s\n", result.RunID)
	fmt.Printf("  Total records: %d\n", result.TotalCount)
	if result.SyntheticCount > 0 {
		fmt.Printf("  Synthetic:     %d (placeholder records, no real listing data)\n", result.SyntheticCount)
	}
	fmt.Printf("  Exported:      %d\n", exported)
	for _, cat := range result.Categories {
		line := fmt.Sprintf("    %-20s %4d records, %d/%d pages", cat.Category, len(cat.Products), cat.PagesFetched, cfg.PagesPerCategory)
		if len(cat.FallbackPages) > 0 {
			line += fmt.Sprintf(", fallback on pages %v", cat.FallbackPages)
		}
		if len(cat.FailedPages) > 0 {
			line += fmt.Sprintf(", failed pages %v", cat.FailedPages)
		}
		fmt.Println(line)
	}
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if result.PersistErrors > 0 {
		fmt.Printf("  Store errors:  %d\n", result.PersistErrors)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  JSON:          %s\n", cfg.JSONFile)
	fmt.Printf("  CSV:           %s\n", cfg.CSVFile)
	if cfg.XLSXFile != "" {
		fmt.Printf("  XLSX:          %s\n", cfg.XLSXFile)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
