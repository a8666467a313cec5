package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE products (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    price NUMERIC(14, 2) NOT NULL,
    original_price NUMERIC(14, 2) NOT NULL,
    discount TEXT NOT NULL,
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    image_url TEXT,
    product_url TEXT NOT NULL,
    category TEXT NOT NULL,
    synthetic BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX idx_products_category ON products (category);`

// Postgres stores products through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Records are written by a single worker.
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Reset drops and recreates the products table in one transaction.
func (p *Postgres) Reset(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS products`); err != nil {
		return fmt.Errorf("drop products table: %w", err)
	}
	if _, err := tx.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Insert(ctx context.Context, product *models.Product) error {
	var image *string
	if product.ImageURL != "" {
		image = &product.ImageURL
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO products (title, price, original_price, discount, rating, image_url, product_url, category, synthetic)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.Title,
		product.Price,
		product.OriginalPrice,
		product.Discount(),
		product.Rating,
		image,
		product.ProductURL,
		product.Category,
		product.Synthetic,
	)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", product.Title, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]*models.Product, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT title, price, original_price, discount, rating, image_url, product_url, category, synthetic
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		var (
			product  models.Product
			discount string
			image    *string
		)
		if err := rows.Scan(&product.Title, &product.Price, &product.OriginalPrice, &discount, &product.Rating,
			&image, &product.ProductURL, &product.Category, &product.Synthetic); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		product.DiscountPercent = parseDiscount(discount)
		if image != nil {
			product.ImageURL = *image
		}
		out = append(out, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// parseDiscount reads the stored "N%" form back into a percentage.
func parseDiscount(s string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0
	}
	return n
}
