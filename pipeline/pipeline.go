// Package pipeline collects scraped records for a run and writes them out.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrAggregatorClosed is returned when Add is called after Close.
	ErrAggregatorClosed = errors.New("aggregator: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(products []*models.Product) error
	Close() error
	Validate() error
}

// Options configures an Aggregator.
type Options struct {
	// DedupeMaxSize enables canonical-URL deduplication when > 0. The LRU
	// holds at most this many URLs.
	DedupeMaxSize int
	// BatchSize bounds the slice handed to a writer in one Write call.
	BatchSize int
	Logger    *slog.Logger
}

// Aggregator accumulates records across pages and categories in arrival
// order. It is append-only until Close.
type Aggregator struct {
	mu       sync.Mutex
	products []*models.Product
	closed   bool

	seen      *lru.Cache[string, struct{}]
	batchSize int
	logger    *slog.Logger
	metrics   metrics
}

// NewAggregator builds an empty aggregator.
func NewAggregator(opts Options) (*Aggregator, error) {
	a := &Aggregator{
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		metrics:   newMetrics(),
	}
	if a.batchSize <= 0 {
		a.batchSize = 64
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With(slog.String("component", "aggregator"))
	if opts.DedupeMaxSize > 0 {
		cache, err := lru.New[string, struct{}](opts.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		a.seen = cache
	}
	return a, nil
}

// Add appends products. Invalid records are counted and skipped; with
// deduplication enabled, records whose canonical URL was already seen are
// skipped too.
func (a *Aggregator) Add(products ...*models.Product) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAggregatorClosed
	}
	for _, product := range products {
		if product == nil {
			continue
		}
		if err := parser.ValidateProduct(product); err != nil {
			a.metrics.addValidation("invalid_record")
			a.logger.Debug("dropping invalid record", slog.Any("error", err))
			continue
		}
		if a.seen != nil {
			key := CanonicalURL(product.ProductURL)
			if a.seen.Contains(key) {
				a.metrics.addValidation("duplicate_url")
				continue
			}
			a.seen.Add(key, struct{}{})
		}
		a.products = append(a.products, product)
		a.metrics.incrementProcessed(product.Synthetic)
	}
	return nil
}

// All returns a copy of the collected records in arrival order.
func (a *Aggregator) All() []*models.Product {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.Product, len(a.products))
	copy(out, a.products)
	return out
}

// Len reports the number of collected records.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.products)
}

// Close stops further additions. Records already collected stay readable.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Export writes every collected record to w in batches, then closes and
// validates it. The writer is closed even when a write fails, so the output
// file is always well formed.
func (a *Aggregator) Export(w OutputWriter) error {
	products := a.All()

	var writeErr error
	for start := 0; start < len(products); start += a.batchSize {
		end := min(start+a.batchSize, len(products))
		if err := w.Write(products[start:end]); err != nil {
			writeErr = fmt.Errorf("write batch: %w", err)
			break
		}
	}
	if err := w.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close writer: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (a *Aggregator) GetMetrics() map[string]interface{} {
	return a.metrics.snapshot()
}

// CanonicalURL normalises a product URL for deduplication: lower-cased
// scheme and host, no query string, no fragment, no trailing slash.
func CanonicalURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.RawPath = ""
	return parsed.String()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	synthetic  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed(synthetic bool) {
	m.mu.Lock()
	m.processed++
	if synthetic {
		m.synthetic++
	}
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed":         m.processed,
		"synthetic":         m.synthetic,
		"validation_errors": copyValidation,
	}
}
