package sale

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expected failure modes of checkout and void. Handlers map these onto
// status codes; anything else is an internal error.
var (
	ErrNotFound            = errors.New("sale not found")
	ErrAlreadyVoided       = errors.New("sale already voided")
	ErrUnauthorized        = errors.New("actor not allowed to void")
	ErrWindowExpired       = errors.New("void window expired")
	ErrInvalidReason       = errors.New("void reason too short")
	ErrProductUnavailable  = errors.New("product missing or inactive")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("amount tendered below total")
	ErrValidation          = errors.New("invalid request")
)

// PaymentMethod is the fixed enumeration of accepted tender types.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodTransfer     PaymentMethod = "transfer"
	MethodMobileWallet PaymentMethod = "mobile-wallet"
)

// ParsePaymentMethod validates a wire value against the enumeration.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodCash, MethodCard, MethodTransfer, MethodMobileWallet:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
	}
}

// Status is the lifecycle state of a sale. The only transition is
// active -> voided, once.
type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)

// Sale is the transactional unit of a checkout: header, lines, totals, and
// (after a void) the audit fields. Created once with all its lines, never
// physically deleted.
type Sale struct {
	ID               uuid.UUID
	CreatedBy        uuid.UUID
	CustomerName     string
	CustomerPhone    string
	CustomerIDNumber string
	PaymentMethod    PaymentMethod
	AmountTendered   decimal.Decimal
	ChangeDue        decimal.Decimal
	Total            decimal.Decimal
	Status           Status
	OrderID          *uuid.UUID
	VoidedBy         *uuid.UUID
	VoidedAt         *time.Time
	VoidReason       string
	CreatedAt        time.Time
	Lines            []Line
}

// Line is one product position on a sale. UnitPriceSnapshot is copied from
// the catalog at checkout and never changes afterwards.
type Line struct {
	SaleID            uuid.UUID
	ProductID         uuid.UUID
	Quantity          int
	UnitPriceSnapshot decimal.Decimal
	Subtotal          decimal.Decimal
}

// Policy carries the business constants the engine reads at call time, so
// boundary conditions stay testable without recompiling.
type Policy struct {
	// VoidWindow is the maximum elapsed time since creation during which a
	// sale may still be voided. Strictly-greater elapsed time is rejected.
	VoidWindow time.Duration
	// MinReasonLen is the minimum length of a void reason, in runes, after
	// trimming whitespace.
	MinReasonLen int
	// DefaultSellerID is attributed as creator when checkout runs without
	// an authenticated actor.
	DefaultSellerID uuid.UUID
}
