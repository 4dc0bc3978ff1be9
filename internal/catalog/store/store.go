package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jvillar/tienda/internal/catalog"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectProductColumns = `id, name, unit_price, stock_quantity, is_active, created_at, updated_at`

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	query := `SELECT ` + selectProductColumns + ` FROM products WHERE id = $1`

	var p catalog.Product

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, catalog.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]*catalog.Product, error) {
	query := `SELECT ` + selectProductColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE is_active`
	}

	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*catalog.Product

	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// CreateProducts inserts a batch inside one transaction, so a bad row drops
// the whole import.
func (s *Store) CreateProducts(ctx context.Context, products []*catalog.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (name, unit_price, stock_quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at
	`

	for _, p := range products {
		err := tx.QueryRowContext(ctx, query,
			p.Name,
			p.UnitPrice,
			p.StockQuantity,
			p.IsActive,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	return nil
}
