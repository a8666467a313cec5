package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds scraper configuration.
type Config struct {
	BaseURL          string
	Categories       []models.Category
	PagesPerCategory int
	PageParam        string

	// Pre-request politeness delay, drawn uniformly from [MinDelay, MaxDelay].
	MinDelay time.Duration
	MaxDelay time.Duration
	// Delay between pages of one category.
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	// RateLimit switches the pre-request pacer to a token bucket when > 0.
	RateLimit float64

	Timeout        time.Duration
	MaxAttempts    int
	UserAgent      string
	AcceptLanguage string
	Referer        string
	// MaxBodySize caps a downloaded page in bytes; 0 means unlimited.
	MaxBodySize int

	ProductLinkSelector string
	CurrencyMarker      string

	DatabaseDSN   string
	JSONFile      string
	CSVFile       string
	XLSXFile      string
	DebugDir      string
	DedupeMaxSize int
	MetricsAddr   string
	Verbose       bool
}

// DefaultConfig returns defaults for the Daraz Nepal listing search.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "https://www.daraz.com.np",
		Categories:          DefaultCategories(),
		PagesPerCategory:    2,
		PageParam:           "page",
		MinDelay:            1 * time.Second,
		MaxDelay:            3 * time.Second,
		PageDelayMin:        2 * time.Second,
		PageDelayMax:        4 * time.Second,
		Timeout:             30 * time.Second,
		MaxAttempts:         3,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage:      "en-US,en;q=0.9",
		Referer:             "https://www.daraz.com.np/",
		ProductLinkSelector: `a[href*="/products/"]`,
		CurrencyMarker:      "Rs.",
		DatabaseDSN:         "daraz_products.sqlite3",
		JSONFile:            "daraz_products.json",
		CSVFile:             "daraz_products.csv",
	}
}

// Validate ensures all configuration values are coherent. It runs before
// any request is made.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if err := validateURL("base URL", c.BaseURL); err != nil {
		return err
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category %d: name cannot be empty", i)
		}
		if _, dup := seen[cat.Name]; dup {
			return fmt.Errorf("category %q listed twice", cat.Name)
		}
		seen[cat.Name] = struct{}{}
		if err := validateURL(fmt.Sprintf("category %q URL", cat.Name), cat.URL); err != nil {
			return err
		}
	}
	if c.PagesPerCategory <= 0 {
		return fmt.Errorf("pages per category must be positive")
	}
	if c.PageParam == "" {
		return fmt.Errorf("page parameter cannot be empty")
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("request delay max (%s) cannot be below min (%s)", c.MaxDelay, c.MinDelay)
	}
	if c.PageDelayMin < 0 || c.PageDelayMax < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.PageDelayMax < c.PageDelayMin {
		return fmt.Errorf("page delay max (%s) cannot be below min (%s)", c.PageDelayMax, c.PageDelayMin)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ProductLinkSelector == "" {
		return fmt.Errorf("product link selector cannot be empty")
	}
	if c.CurrencyMarker == "" {
		return fmt.Errorf("currency marker cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.JSONFile == "" || c.CSVFile == "" {
		return fmt.Errorf("json and csv output files are required")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.DedupeMaxSize < 0 {
		return fmt.Errorf("dedupe max size cannot be negative")
	}
	return nil
}

func validateURL(what, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", what)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", what)
	}
	return nil
}
