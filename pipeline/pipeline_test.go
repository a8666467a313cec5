package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/shopspring/decimal"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Product
	closed      bool
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(products []*models.Product) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]*models.Product, len(products))
	copy(copyBatch, products)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func product(title, url string) *models.Product {
	return &models.Product{
		Title:         title,
		Price:         decimal.NewFromInt(1200),
		OriginalPrice: decimal.NewFromInt(1500),
		ProductURL:    url,
		Category:      "Men's Shirts",
	}
}

func TestAggregatorKeepsDuplicatesByDefault(t *testing.T) {
	a, err := NewAggregator(Options{})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}

	first := product("Cotton Shirt", "http://example.test/products/1.html")
	second := product("Cotton Shirt", "http://example.test/products/1.html")
	if err := a.Add(first, second); err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("len=%d, want 2", a.Len())
	}
	all := a.All()
	if all[0] != first || all[1] != second {
		t.Fatalf("arrival order not preserved")
	}
}

func TestAggregatorValidationAndDedup(t *testing.T) {
	a, err := NewAggregator(Options{DedupeMaxSize: 100})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}

	valid := product("Cotton Shirt", "http://example.test/products/1.html")
	invalid := product("", "http://example.test/products/2.html")
	duplicate := product("Cotton Shirt (again)", "HTTP://EXAMPLE.TEST/products/1.html/?from=search#top")
	synthetic := product("Sample Men's Shirts Item 1", "http://example.test/products/sample1/")
	synthetic.Synthetic = true

	if err := a.Add(valid, invalid, duplicate, nil, synthetic); err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("len=%d, want 2", a.Len())
	}

	metrics := a.GetMetrics()
	if got := metrics["processed"].(int64); got != 2 {
		t.Fatalf("processed=%d, want 2", got)
	}
	if got := metrics["synthetic"].(int64); got != 1 {
		t.Fatalf("synthetic=%d, want 1", got)
	}
	validation, ok := metrics["validation_errors"].(map[string]int)
	if !ok {
		t.Fatalf("expected validation errors map")
	}
	if validation["invalid_record"] != 1 {
		t.Fatalf("expected invalid_record validation error, got %v", validation)
	}
	if validation["duplicate_url"] != 1 {
		t.Fatalf("expected duplicate_url validation error, got %v", validation)
	}
}

func TestAggregatorClosed(t *testing.T) {
	a, err := NewAggregator(Options{})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	if err := a.Add(product("Polo", "http://example.test/products/p.html")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Add(product("Late", "http://example.test/products/l.html")); !errors.Is(err, ErrAggregatorClosed) {
		t.Fatalf("expected ErrAggregatorClosed, got %v", err)
	}
	if a.Len() != 1 {
		t.Fatalf("len=%d, want 1 after close", a.Len())
	}
}

func TestAggregatorExportBatches(t *testing.T) {
	a, err := NewAggregator(Options{BatchSize: 64})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	for i := 0; i < 65; i++ {
		if err := a.Add(product("Shirt", "http://example.test/products/"+strconv.Itoa(i))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	writer := &mockWriter{}
	if err := a.Export(writer); err != nil {
		t.Fatalf("export: %v", err)
	}
	sizes := writer.batchSizes()
	if len(sizes) != 2 || sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
	if !writer.closed {
		t.Fatalf("writer should be closed after export")
	}
}

func TestAggregatorExportClosesOnWriteError(t *testing.T) {
	a, err := NewAggregator(Options{})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	if err := a.Add(product("Shirt", "http://example.test/products/1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	writer := &mockWriter{writeErr: errors.New("disk full")}
	if err := a.Export(writer); err == nil {
		t.Fatalf("expected export error")
	}
	if !writer.closed {
		t.Fatalf("writer should be closed even when a write fails")
	}
}

func TestAggregatorExportEmptyStillValidates(t *testing.T) {
	a, err := NewAggregator(Options{})
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	writer := &mockWriter{validateErr: errors.New("empty")}
	if err := a.Export(writer); err == nil {
		t.Fatalf("expected validation error to surface")
	}
	if len(writer.batchSizes()) != 0 {
		t.Fatalf("no batches expected for an empty aggregator")
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := map[string]string{
		"https://Shop.Test/products/a.html?spm=1#x": "https://shop.test/products/a.html",
		"https://shop.test/products/a/":             "https://shop.test/products/a",
		"/products/relative":                        "/products/relative",
	}
	for in, want := range tests {
		if got := CanonicalURL(in); got != want {
			t.Fatalf("CanonicalURL(%q) = %q, want %q", in, got, want)
		}
	}
}
