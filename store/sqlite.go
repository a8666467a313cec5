package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLite stores products in a single database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database file at path. The schema is
// created by Reset, not here.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLite{db: db, path: path}, nil
}

// dropProducts removes the table even when no migration version records it,
// as with files written by older tools under the same name.
var dropProducts = []string{
	`DROP INDEX IF EXISTS idx_products_category`,
	`DROP TABLE IF EXISTS products`,
}

// Reset migrates all the way down, drops any unversioned products table
// left behind, and migrates back up, leaving an empty table.
func (s *SQLite) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.migrator()
	if err != nil {
		return err
	}
	// m.Close would also close s.db, so the migrator is simply dropped.
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("drop products table: %w", err)
	}
	for _, stmt := range dropProducts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop products table: %w", err)
		}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

func (s *SQLite) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	source, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Insert writes one product in its own implicit transaction.
func (s *SQLite) Insert(ctx context.Context, p *models.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (title, price, original_price, discount, rating, image_url, product_url, category, synthetic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title,
		p.Price.InexactFloat64(),
		p.OriginalPrice.InexactFloat64(),
		p.Discount(),
		p.Rating,
		nullString(p.ImageURL),
		p.ProductURL,
		p.Category,
		p.Synthetic,
	)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Title, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, price, original_price, discount, rating, image_url, product_url, category, synthetic
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		var (
			p               models.Product
			price, original float64
			discount        string
			image           sql.NullString
		)
		if err := rows.Scan(&p.Title, &price, &original, &discount, &p.Rating, &image, &p.ProductURL, &p.Category, &p.Synthetic); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Price = decimal.NewFromFloat(price)
		p.OriginalPrice = decimal.NewFromFloat(original)
		p.DiscountPercent = parseDiscount(discount)
		p.ImageURL = image.String
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
