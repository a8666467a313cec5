// Package extractor turns listing-page HTML into product records.
//
// Container discovery runs an ordered strategy table and stops at the first
// strategy that finds anything. Each container then goes through independent
// per-field fallback chains; only title and price are mandatory. When no
// strategy finds a container the page is answered with a clearly marked
// synthetic batch instead of an empty result.
package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyMarker is the currency prefix used for raw-text price search.
const DefaultCurrencyMarker = "Rs."

// Options configures an Extractor.
type Options struct {
	BaseURL             string
	ProductLinkSelector string
	CurrencyMarker      string
	// Strategies overrides the container discovery table.
	Strategies []Strategy
	// Fallback produces the placeholder batch for pages without containers.
	Fallback FallbackFunc
	Logger   *slog.Logger
}

// Extraction is the outcome of parsing one page.
type Extraction struct {
	Products   []*models.Product
	Strategy   string // empty when no strategy matched
	Containers int
	Skipped    int
	Fallback   bool
}

// Extractor is safe for concurrent use; it holds no per-page state.
type Extractor struct {
	base         *url.URL
	linkSelector string
	currency     string
	currencyText *regexp.Regexp
	strategies   []Strategy
	fallback     FallbackFunc
	logger       *slog.Logger
}

// New builds an Extractor from opts, filling in defaults.
func New(opts Options) (*Extractor, error) {
	e := &Extractor{
		linkSelector: opts.ProductLinkSelector,
		currency:     opts.CurrencyMarker,
		strategies:   opts.Strategies,
		fallback:     opts.Fallback,
		logger:       opts.Logger,
	}
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		e.base = base
	}
	if e.linkSelector == "" {
		e.linkSelector = DefaultProductLinkSelector
	}
	if e.currency == "" {
		e.currency = DefaultCurrencyMarker
	}
	e.currencyText = currencyPattern(e.currency)
	if len(e.strategies) == 0 {
		e.strategies = DefaultStrategies(e.linkSelector)
	}
	if e.fallback == nil {
		e.fallback = NewFallbackGenerator(opts.BaseURL).Generate
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slog.String("component", "extractor"))
	return e, nil
}

// Extract parses content and returns the valid records found for category.
// The result depends only on its inputs.
func (e *Extractor) Extract(content []byte, category string) *Extraction {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		e.logger.Warn("unparseable page, using fallback batch",
			slog.String("category", category),
			slog.Any("error", err),
		)
		return &Extraction{Products: e.fallback(category), Fallback: true}
	}

	strategy, containers := discover(doc, e.strategies)
	if containers == nil {
		e.logger.Warn("no product containers found, using fallback batch",
			slog.String("category", category),
			slog.Int("strategies_tried", len(e.strategies)),
		)
		return &Extraction{Products: e.fallback(category), Fallback: true}
	}

	out := &Extraction{
		Strategy:   strategy,
		Containers: containers.Length(),
		Products:   make([]*models.Product, 0, containers.Length()),
	}
	containers.Each(func(_ int, c *goquery.Selection) {
		product := e.fromContainer(c, category)
		if product == nil {
			out.Skipped++
			return
		}
		out.Products = append(out.Products, product)
	})

	e.logger.Debug("page extracted",
		slog.String("category", category),
		slog.String("strategy", strategy),
		slog.Int("containers", out.Containers),
		slog.Int("products", len(out.Products)),
		slog.Int("skipped", out.Skipped),
	)
	return out
}

// fromContainer runs every field chain and applies the validity gate.
// It returns nil for containers that are not usable records.
func (e *Extractor) fromContainer(c *goquery.Selection, category string) *models.Product {
	link := e.link(c)
	href := ""
	if link.Length() > 0 {
		href = link.AttrOr("href", "")
	}
	if href == "" {
		return nil
	}

	price := e.price(c).Or(decimal.Zero)
	original := e.originalPrice(c, price).Or(price)

	product := &models.Product{
		Title:           e.title(c, link).Or(""),
		Price:           price,
		OriginalPrice:   original,
		DiscountPercent: parser.DiscountPercent(price, original),
		Rating:          e.rating(c).Or(0),
		ImageURL:        e.image(c).Or(""),
		ProductURL:      e.absolute(href),
		Category:        category,
	}
	if err := parser.ValidateProduct(product); err != nil {
		return nil
	}
	return product
}
