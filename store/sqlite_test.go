package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/shopspring/decimal"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.sqlite3")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return s
}

func cottonShirt() *models.Product {
	return &models.Product{
		Title:           "Cotton Shirt",
		Price:           decimal.NewFromInt(1200),
		OriginalPrice:   decimal.NewFromInt(1500),
		DiscountPercent: 20,
		Rating:          4.5,
		ImageURL:        "https://img.example.test/100.jpg",
		ProductURL:      "https://shop.example.test/products/cotton-shirt-i100.html",
		Category:        "Men's Shirts",
	}
}

func TestSQLiteInsertAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	noImage := cottonShirt()
	noImage.Title = "Sample Men's Shirts Item 1"
	noImage.ImageURL = ""
	noImage.Synthetic = true

	for _, p := range []*models.Product{cottonShirt(), noImage} {
		if err := s.Insert(ctx, p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count=%d, want 2", n)
	}

	products, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first := products[0]
	if first.Title != "Cotton Shirt" || !first.Price.Equal(decimal.NewFromInt(1200)) || !first.OriginalPrice.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected first product: %+v", first)
	}
	if first.DiscountPercent != 20 || first.Rating != 4.5 || first.Synthetic {
		t.Fatalf("unexpected first product: %+v", first)
	}
	second := products[1]
	if second.ImageURL != "" || !second.Synthetic {
		t.Fatalf("unexpected second product: %+v", second)
	}
}

func TestSQLiteResetDropsPreviousRun(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	if err := s.Insert(ctx, cottonShirt()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d after reset, want 0", n)
	}

	// The table must be usable again after the reset.
	if err := s.Insert(ctx, cottonShirt()); err != nil {
		t.Fatalf("insert after reset: %v", err)
	}
}

func TestSQLiteResetReplacesUnversionedTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "daraz_products.sqlite3")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	// A products table written without migrations and without the synthetic column.
	legacy := []string{
		`CREATE TABLE products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT, price REAL, original_price REAL, discount TEXT,
			rating REAL, image_url TEXT, product_url TEXT, category TEXT
		)`,
		`INSERT INTO products (title, price, original_price, discount, rating, image_url, product_url, category)
		 VALUES ('Old Shirt', 500, 500, '0%', 0, NULL, 'https://shop.example.test/products/old.html', 'Men''s Shirts')`,
	}
	for _, stmt := range legacy {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed legacy table: %v", err)
		}
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d after reset, want 0", n)
	}
	if err := s.Insert(ctx, cottonShirt()); err != nil {
		t.Fatalf("insert after reset: %v", err)
	}
	products, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].Title != "Cotton Shirt" {
		t.Fatalf("unexpected products after reset: %+v", products)
	}
}

func TestSQLiteInsertWithoutTableFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.sqlite3")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	if err := s.Insert(context.Background(), cottonShirt()); err == nil {
		t.Fatalf("expected insert to fail before Reset creates the table")
	}
}

func TestOpenPicksBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picked.sqlite3")
	st, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*SQLite); !ok {
		t.Fatalf("expected *SQLite for a file path, got %T", st)
	}
}

func TestParseDiscount(t *testing.T) {
	tests := map[string]int{"20%": 20, "0%": 0, " 7% ": 7, "": 0, "n/a": 0}
	for in, want := range tests {
		if got := parseDiscount(in); got != want {
			t.Fatalf("parseDiscount(%q) = %d, want %d", in, got, want)
		}
	}
}
