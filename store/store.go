// Package store persists product records.
//
// A store is recreated at the start of every run: Reset drops the products
// table and creates it again. Callers that need history across runs must
// copy the data out before the next run.
package store

import (
	"context"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Store is a durable product table. Each Insert is an independent write.
type Store interface {
	// Reset drops and recreates the products table.
	Reset(ctx context.Context) error
	Insert(ctx context.Context, product *models.Product) error
	// List returns every stored product in insertion order.
	List(ctx context.Context) ([]*models.Product, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open picks the backend from dsn: postgres:// and postgresql:// URLs go to
// Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}
