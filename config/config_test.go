package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/models"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero pages",
			mutate: func(cfg *Config) {
				cfg.PagesPerCategory = 0
			},
			wantErr: "pages per category",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "malformed category url",
			mutate: func(cfg *Config) {
				cfg.Categories = []models.Category{{Name: "Shirts", URL: "not a url"}}
			},
			wantErr: `category "Shirts" URL`,
		},
		{
			name: "no categories",
			mutate: func(cfg *Config) {
				cfg.Categories = nil
			},
			wantErr: "category",
		},
		{
			name: "duplicate category",
			mutate: func(cfg *Config) {
				cfg.Categories = append(cfg.Categories, cfg.Categories[0])
			},
			wantErr: "listed twice",
		},
		{
			name: "inverted delay range",
			mutate: func(cfg *Config) {
				cfg.MinDelay = 3 * time.Second
				cfg.MaxDelay = time.Second
			},
			wantErr: "request delay",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative body size",
			mutate: func(cfg *Config) {
				cfg.MaxBodySize = -1
			},
			wantErr: "max body size",
		},
		{
			name: "zero attempts",
			mutate: func(cfg *Config) {
				cfg.MaxAttempts = 0
			},
			wantErr: "attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s, want 30s", cfg.Timeout)
	}
}
