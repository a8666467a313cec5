package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
)

type failingStore struct{}

func (failingStore) Reset(context.Context) error {
	return errors.New("database is locked")
}

func (failingStore) Insert(context.Context, *models.Product) error {
	return nil
}

func TestScrapeWritesExportsWhenRunFails(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.CSVFile = filepath.Join(dir, "out.csv")
	cfg.JSONFile = filepath.Join(dir, "out.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if status := scrape(context.Background(), cfg, failingStore{}, logger); status != 1 {
		t.Fatalf("status=%d, want 1", status)
	}

	csvData, err := os.ReadFile(cfg.CSVFile)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "title,price,original_price,discount,rating,image_url,product_url,category") {
		t.Fatalf("csv=%q, want header row", csvData)
	}
	jsonData, err := os.ReadFile(cfg.JSONFile)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if string(jsonData) != "[]\n" {
		t.Fatalf("json=%q, want empty array", jsonData)
	}
}

func TestBuildConfigReferer(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{baseURL: "https://www.daraz.com.np", want: "https://www.daraz.com.np/"},
		{baseURL: "https://www.daraz.com.np/", want: "https://www.daraz.com.np/"},
		{baseURL: "https://www.daraz.com.np//", want: "https://www.daraz.com.np/"},
	}
	for _, tt := range tests {
		cfg, err := buildConfig(options{BaseURL: tt.baseURL})
		if err != nil {
			t.Fatalf("buildConfig(%q): %v", tt.baseURL, err)
		}
		if cfg.Referer != tt.want {
			t.Fatalf("referer for %q = %q, want %q", tt.baseURL, cfg.Referer, tt.want)
		}
	}
}
