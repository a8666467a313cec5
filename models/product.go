// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one listing record harvested from a category page.
type Product struct {
	Title           string
	Price           decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent int
	Rating          float64 // 0 means unknown
	ImageURL        string  // empty when the listing had no image
	ProductURL      string
	Category        string
	Synthetic       bool // placeholder emitted when no containers were found
}

// Discount renders the discount the way it is stored and exported, e.g. "20%".
func (p *Product) Discount() string {
	return fmt.Sprintf("%d%%", p.DiscountPercent)
}

type productJSON struct {
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	Discount      string  `json:"discount"`
	Rating        float64 `json:"rating"`
	ImageURL      *string `json:"image_url"`
	ProductURL    string  `json:"product_url"`
	Category      string  `json:"category"`
	Synthetic     bool    `json:"synthetic,omitempty"`
}

// MarshalJSON emits prices as numbers and a null image_url when absent.
// URLs are written without HTML escaping.
func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		Title:         p.Title,
		Price:         p.Price.InexactFloat64(),
		OriginalPrice: p.OriginalPrice.InexactFloat64(),
		Discount:      p.Discount(),
		Rating:        p.Rating,
		ProductURL:    p.ProductURL,
		Category:      p.Category,
		Synthetic:     p.Synthetic,
	}
	if p.ImageURL != "" {
		image := p.ImageURL
		out.ImageURL = &image
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Category is one logical listing to harvest.
type Category struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// CategoryResult summarises the scrape of a single category.
type CategoryResult struct {
	Category      string
	Products      []*Product
	PagesFetched  int
	FailedPages   []int
	EmptyPages    []int
	FallbackPages []int
	Elapsed       time.Duration
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	RunID          string
	Categories     []*CategoryResult
	StartTime      time.Time
	EndTime        time.Time
	TotalCount     int
	SyntheticCount int
	ErrorCount     int
	FailedURLs     []string
	ErrorsByType   map[string]int
	RetryCount     int
	RequestCount   int
	PageCount      int
	PersistErrors  int
}
