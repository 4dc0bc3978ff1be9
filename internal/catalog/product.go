package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. UnitPrice is the current price; sales copy it
// into their lines at checkout so later price changes never rewrite history.
// StockQuantity is mutated only inside sale checkout/void transactions.
type Product struct {
	ID            uuid.UUID
	Name          string
	UnitPrice     decimal.Decimal
	StockQuantity int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
