package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/aluiziolira/go-scrape-listings/extractor"
	"github.com/aluiziolira/go-scrape-listings/models"
)

// PageFetcher downloads one page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// Recorder persists one record as soon as it passes the validity gate.
type Recorder interface {
	Insert(ctx context.Context, product *models.Product) error
}

// PaginatorOptions configures a Paginator.
type PaginatorOptions struct {
	Fetcher   PageFetcher
	Extractor *extractor.Extractor
	// Recorder is optional.
	Recorder Recorder
	// PagePacer runs between two pages of the same category.
	PagePacer Pacer
	PageParam string
	// DebugDir receives the raw body of every fetched page when set.
	DebugDir string
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Paginator walks the pages of one category in order.
type Paginator struct {
	fetcher   PageFetcher
	extractor *extractor.Extractor
	recorder  Recorder
	pacer     Pacer
	pageParam string
	debugDir  string
	metrics   *Metrics
	logger    *slog.Logger

	persistErrors int
}

// NewPaginator builds a Paginator from opts.
func NewPaginator(opts PaginatorOptions) (*Paginator, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("paginator requires a fetcher")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("paginator requires an extractor")
	}
	p := &Paginator{
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		recorder:  opts.Recorder,
		pacer:     opts.PagePacer,
		pageParam: opts.PageParam,
		debugDir:  opts.DebugDir,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if p.pacer == nil {
		p.pacer = NoDelay{}
	}
	if p.pageParam == "" {
		p.pageParam = "page"
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("component", "paginator"))
	return p, nil
}

// PageURL appends the page parameter to base, using '&' when base already
// carries a query string and '?' otherwise. The existing query is left
// untouched.
func PageURL(base, param string, page int) string {
	pair := param + "=" + strconv.Itoa(page)
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		return base + pair
	case strings.Contains(base, "?"):
		return base + "&" + pair
	default:
		return base + "?" + pair
	}
}

// ScrapeCategory fetches pages 1..maxPages of category. A failed or empty
// page never ends the walk early. The only error is a cancelled context, in
// which case the records gathered so far are still returned.
func (p *Paginator) ScrapeCategory(ctx context.Context, category models.Category, maxPages int) (*models.CategoryResult, error) {
	start := time.Now()
	result := &models.CategoryResult{Category: category.Name}
	logger := p.logger.With(slog.String("category", category.Name))
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := p.pacer.Wait(ctx); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pageURL := PageURL(category.URL, p.pageParam, page)
		fetched, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Error("page failed, continuing with next page",
				slog.Int("page", page),
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			result.FailedPages = append(result.FailedPages, page)
			p.metrics.IncPage("failed")
			continue
		}
		result.PagesFetched++
		p.dumpDebug(logger, category.Name, page, fetched.Body)

		extraction := p.extractor.Extract(fetched.Body, category.Name)
		kept := p.record(ctx, logger, extraction.Products)
		result.Products = append(result.Products, kept...)

		status := "ok"
		switch {
		case extraction.Fallback:
			status = "fallback"
			result.FallbackPages = append(result.FallbackPages, page)
			p.metrics.IncFallback()
			p.metrics.AddItems("synthetic", len(kept))
		case len(kept) == 0:
			status = "empty"
			result.EmptyPages = append(result.EmptyPages, page)
		default:
			p.metrics.AddItems("real", len(kept))
		}
		p.metrics.IncPage(status)

		logger.Info("page scraped",
			slog.Int("page", page),
			slog.String("status", status),
			slog.String("strategy", extraction.Strategy),
			slog.Int("records", len(kept)),
			slog.Int("skipped", extraction.Skipped),
			slog.Int("attempts", fetched.Attempts),
		)
	}

	logger.Info("category complete",
		slog.Int("records", len(result.Products)),
		slog.Int("pages_fetched", result.PagesFetched),
		slog.Int("pages_failed", len(result.FailedPages)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// record persists each product one by one. Products whose write fails are
// dropped from the returned slice.
func (p *Paginator) record(ctx context.Context, logger *slog.Logger, products []*models.Product) []*models.Product {
	if p.recorder == nil {
		return products
	}
	kept := products[:0:0]
	for _, product := range products {
		if err := p.recorder.Insert(ctx, product); err != nil {
			p.persistErrors++
			p.metrics.IncPersistError()
			logger.Error("persist record failed, dropping it",
				slog.String("title", product.Title),
				slog.String("product_url", product.ProductURL),
				slog.Any("error", err),
			)
			continue
		}
		kept = append(kept, product)
	}
	return kept
}

// PersistErrors reports how many records were dropped on write failure.
func (p *Paginator) PersistErrors() int {
	return p.persistErrors
}

func (p *Paginator) dumpDebug(logger *slog.Logger, category string, page int, body []byte) {
	if p.debugDir == "" {
		return
	}
	path := filepath.Join(p.debugDir, DebugFileName(category, page))
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		logger.Warn("create debug dir", slog.String("dir", p.debugDir), slog.Any("error", err))
		return
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		logger.Warn("write debug page", slog.String("path", path), slog.Any("error", err))
		return
	}
	logger.Debug("saved page body", slog.String("path", path))
}

// DebugFileName names the raw body dump for a category page, e.g.
// "debug_mens_shirts_p2.html".
func DebugFileName(category string, page int) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(category) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if r == '\'' {
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		slug = "category"
	}
	return fmt.Sprintf("debug_%s_p%d.html", slug, page)
}
