package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type Repository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error)
	CreateProducts(ctx context.Context, products []*Product) error
}

// Service exposes read access to the catalog and a CSV seeding path. Stock
// levels are read here but only ever written by sale checkout and void.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// ImportCSV parses a products CSV (name, unit price, initial stock) and
// inserts all rows. Supplier exports come in assorted encodings, so the
// reader is normalized to UTF-8 first.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) ([]*Product, error) {
	products, err := ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("parsing products csv: %w", err)
	}

	if len(products) == 0 {
		return nil, nil
	}

	if err := s.repo.CreateProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("creating products: %w", err)
	}

	return products, nil
}
