package receipt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/receipt"
	"github.com/jvillar/tienda/internal/sale"
)

func sampleSale() (*sale.Sale, map[string]*catalog.Product) {
	productID := uuid.New()

	s := &sale.Sale{
		ID:             uuid.New(),
		CustomerName:   "Maria Perez",
		PaymentMethod:  sale.MethodCash,
		AmountTendered: decimal.RequireFromString("30.00"),
		ChangeDue:      decimal.RequireFromString("5.00"),
		Total:          decimal.RequireFromString("25.00"),
		Status:         sale.StatusActive,
		CreatedAt:      time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Lines: []sale.Line{
			{
				ProductID:         productID,
				Quantity:          2,
				UnitPriceSnapshot: decimal.RequireFromString("12.50"),
				Subtotal:          decimal.RequireFromString("25.00"),
			},
		},
	}

	products := map[string]*catalog.Product{
		productID.String(): {ID: productID, Name: "Café Molido"},
	}

	return s, products
}

func TestRender(t *testing.T) {
	s, products := sampleSale()

	got := receipt.Render("Tienda", s, products)

	assert.Contains(t, got, "Tienda")
	assert.Contains(t, got, "2026-03-14 10:30")
	assert.Contains(t, got, "Customer: Maria Perez")
	assert.Contains(t, got, "Café Molido")
	assert.Contains(t, got, "2 x 12.50")
	assert.Contains(t, got, "25.00")
	assert.Contains(t, got, "PAID (cash)")
	assert.Contains(t, got, "30.00")
	assert.Contains(t, got, "CHANGE")
	assert.Contains(t, got, "5.00")
	assert.Contains(t, got, s.ID.String())
	assert.NotContains(t, got, "VOIDED")
}

func TestRender_VoidedBanner(t *testing.T) {
	s, products := sampleSale()

	voidedAt := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	s.Status = sale.StatusVoided
	s.VoidedAt = &voidedAt

	got := receipt.Render("Tienda", s, products)

	assert.Contains(t, got, "*** VOIDED ***")
	assert.Contains(t, got, "2026-03-14 15:00")
}

func TestRender_UnknownProductFallsBackToID(t *testing.T) {
	s, _ := sampleSale()

	got := receipt.Render("Tienda", s, nil)

	assert.Contains(t, got, s.Lines[0].ProductID.String()[:8])
}

func TestRender_TotalRowAligned(t *testing.T) {
	s, products := sampleSale()

	for _, line := range strings.Split(receipt.Render("Tienda", s, products), "\n") {
		if strings.HasPrefix(line, "TOTAL") {
			assert.Len(t, line, 40)
			assert.True(t, strings.HasSuffix(line, "25.00"))

			return
		}
	}

	t.Fatal("no TOTAL row in receipt")
}
