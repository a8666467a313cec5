// Package scraper fetches listing pages and drives extraction across
// categories.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/extractor"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/google/uuid"
)

// Store is the durable record store. Reset is destructive: it drops every
// record from earlier runs and is called once at the start of Run.
type Store interface {
	Reset(ctx context.Context) error
	Recorder
}

// Sink receives each category's records once the category is done.
type Sink interface {
	Add(products ...*models.Product) error
}

// Option customises a Scraper.
type Option func(*options)

type options struct {
	transport    http.RoundTripper
	requestPacer Pacer
	pagePacer    Pacer
	logger       *slog.Logger
}

// WithTransport replaces the HTTP transport used by the collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithPacers overrides the pre-request and inter-page pacers built from the
// config. A nil argument keeps the configured pacer.
func WithPacers(request, page Pacer) Option {
	return func(o *options) {
		if request != nil {
			o.requestPacer = request
		}
		if page != nil {
			o.pagePacer = page
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Scraper runs every configured category sequentially with one session per
// category.
type Scraper struct {
	cfg       *config.Config
	fetcher   *Fetcher
	extractor *extractor.Extractor
	store     Store
	pagePacer Pacer
	logger    *slog.Logger
	Metrics   *Metrics

	pageCount int64
}

// NewScraper builds a scraper from cfg. st may be nil to skip persistence.
func NewScraper(cfg *config.Config, st Store, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("scraper requires a config")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.requestPacer == nil {
		o.requestPacer = requestPacer(cfg)
	}
	if o.pagePacer == nil {
		o.pagePacer = NewJitterPacer(cfg.PageDelayMin, cfg.PageDelayMax)
	}

	metrics := NewMetrics()
	ext, err := extractor.New(extractor.Options{
		BaseURL:             cfg.BaseURL,
		ProductLinkSelector: cfg.ProductLinkSelector,
		CurrencyMarker:      cfg.CurrencyMarker,
		Logger:              o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	fetcher := NewFetcher(FetcherOptions{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		Referer:        cfg.Referer,
		Timeout:        cfg.Timeout,
		MaxAttempts:    cfg.MaxAttempts,
		MaxBodySize:    cfg.MaxBodySize,
		Pacer:          o.requestPacer,
		Transport:      o.transport,
		Metrics:        metrics,
		Logger:         o.logger,
	})

	return &Scraper{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: ext,
		store:     st,
		pagePacer: o.pagePacer,
		logger:    o.logger.With(slog.String("component", "scraper")),
		Metrics:   metrics,
	}, nil
}

func requestPacer(cfg *config.Config) Pacer {
	if cfg.RateLimit > 0 {
		return NewTokenBucketPacer(cfg.RateLimit)
	}
	return NewJitterPacer(cfg.MinDelay, cfg.MaxDelay)
}

// Run resets the store, scrapes every category in order and hands each
// category's records to sink. Cancelling ctx stops the run between pages;
// the partial result is still returned with a nil error.
func (s *Scraper) Run(ctx context.Context, sink Sink) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	result := &models.ScraperResult{
		RunID:     runID,
		StartTime: time.Now(),
	}

	if s.store != nil {
		if err := s.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset store: %w", err)
		}
		logger.Info("store reset")
	}

	paginator, err := NewPaginator(PaginatorOptions{
		Fetcher:   s.fetcher,
		Extractor: s.extractor,
		Recorder:  s.store,
		PagePacer: s.pagePacer,
		PageParam: s.cfg.PageParam,
		DebugDir:  s.cfg.DebugDir,
		Metrics:   s.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	for _, category := range s.cfg.Categories {
		if ctx.Err() != nil {
			logger.Warn("run interrupted, skipping remaining categories")
			break
		}
		if err := s.fetcher.NewSession(); err != nil {
			return nil, err
		}

		logger.Info("scraping category",
			slog.String("category", category.Name),
			slog.Int("pages", s.cfg.PagesPerCategory),
		)
		catResult, err := paginator.ScrapeCategory(ctx, category, s.cfg.PagesPerCategory)
		atomic.AddInt64(&s.pageCount, int64(catResult.PagesFetched+len(catResult.FailedPages)))
		result.Categories = append(result.Categories, catResult)

		for _, product := range catResult.Products {
			if product.Synthetic {
				result.SyntheticCount++
			}
		}
		result.TotalCount += len(catResult.Products)
		if sink != nil {
			if addErr := sink.Add(catResult.Products...); addErr != nil {
				logger.Error("sink rejected records",
					slog.String("category", category.Name),
					slog.Any("error", addErr),
				)
			}
		}

		if err != nil {
			logger.Warn("category interrupted",
				slog.String("category", category.Name),
				slog.Any("error", err),
			)
		}
	}

	result.EndTime = time.Now()
	result.ErrorCount = int(atomic.LoadInt64(&s.fetcher.errorCount))
	result.FailedURLs = s.fetcher.snapshotFailedURLs()
	result.ErrorsByType = s.fetcher.snapshotErrors()
	result.RetryCount = int(atomic.LoadInt64(&s.fetcher.retryCount))
	result.RequestCount = int(atomic.LoadInt64(&s.fetcher.requestCount))
	result.PageCount = int(atomic.LoadInt64(&s.pageCount))
	result.PersistErrors = paginator.PersistErrors()

	logger.Info("run complete",
		slog.Int("records", result.TotalCount),
		slog.Int("synthetic", result.SyntheticCount),
		slog.Int("requests", result.RequestCount),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}
