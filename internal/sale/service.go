package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jvillar/tienda/internal/audit"
	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
)

//go:generate mockgen -source=service.go -destination=store_mock.go -package=sale
type Repository interface {
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)

	BeginCheckout(ctx context.Context) (CheckoutTx, error)
	BeginVoid(ctx context.Context) (VoidTx, error)
}

// CheckoutTx is one database transaction covering every mutation of a
// checkout: stock decrements, the sale row, its lines, and the optional
// order linkage. Rollback undoes all of it.
type CheckoutTx interface {
	// ProductForSale loads and locks the product row.
	// Returns catalog.ErrNotFound when the product does not exist.
	ProductForSale(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	// ReserveStock atomically checks and decrements on-hand quantity.
	// Returns ErrInsufficientStock without applying a partial change.
	ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) error
	InsertSale(ctx context.Context, s *Sale) error
	InsertLines(ctx context.Context, lines []Line) error
	// FulfillOrder marks an open order as fulfilled by the sale.
	FulfillOrder(ctx context.Context, orderID, saleID uuid.UUID) error
	Commit() error
	Rollback() error
}

// VoidTx is one database transaction covering a void: the stock releases and
// the status flip commit or roll back together.
type VoidTx interface {
	// SaleForUpdate loads the sale with its lines and locks the row, so
	// concurrent void attempts serialize and exactly one sees it active.
	SaleForUpdate(ctx context.Context, id uuid.UUID) (*Sale, error)
	ReleaseStock(ctx context.Context, productID uuid.UUID, quantity int) error
	MarkVoided(ctx context.Context, s *Sale) error
	Commit() error
	Rollback() error
}

// Auditor records an append-only trail of checkout and void events.
type Auditor interface {
	Record(ctx context.Context, e audit.Event) error
}

type Service struct {
	repo    Repository
	gate    auth.Gate
	auditor Auditor
	policy  Policy
}

func NewService(repo Repository, gate auth.Gate, auditor Auditor, policy Policy) *Service {
	return &Service{
		repo:    repo,
		gate:    gate,
		auditor: auditor,
		policy:  policy,
	}
}

// LineInput is a requested sale position before pricing.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateParams struct {
	CustomerName     string
	CustomerPhone    string
	CustomerIDNumber string
	Lines            []LineInput
	PaymentMethod    PaymentMethod
	AmountTendered   decimal.Decimal
	// OrderID links the sale to a pre-existing order, fulfilled in the
	// same transaction.
	OrderID *uuid.UUID
	// CreatedBy is the authenticated actor; nil falls back to the policy's
	// default seller.
	CreatedBy *uuid.UUID
}

type ListFilter struct {
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateSale runs the checkout: per line, the product is loaded and its stock
// atomically reserved; prices are snapshotted and totals computed; the sale
// and its lines are persisted together with the stock decrements in one
// transaction. Any failure rolls the whole thing back, stock included.
func (s *Service) CreateSale(ctx context.Context, params CreateParams) (*Sale, error) {
	if err := validateCreate(params); err != nil {
		return nil, err
	}

	createdBy := s.policy.DefaultSellerID
	if params.CreatedBy != nil {
		createdBy = *params.CreatedBy
	}

	tx, err := s.repo.BeginCheckout(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	total := decimal.Zero
	lines := make([]Line, 0, len(params.Lines))

	for _, input := range params.Lines {
		product, err := tx.ProductForSale(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, input.ProductID)
			}

			return nil, fmt.Errorf("loading product %s: %w", input.ProductID, err)
		}

		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, input.ProductID)
		}

		if err := tx.ReserveStock(ctx, product.ID, input.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, product.ID)
			}

			return nil, fmt.Errorf("reserving stock for %s: %w", product.ID, err)
		}

		subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
		total = total.Add(subtotal)

		lines = append(lines, Line{
			ProductID:         product.ID,
			Quantity:          input.Quantity,
			UnitPriceSnapshot: product.UnitPrice,
			Subtotal:          subtotal,
		})
	}

	change := params.AmountTendered.Sub(total)
	if change.IsNegative() {
		// The deferred rollback also undoes the reservations made above.
		return nil, fmt.Errorf("%w: total %s, tendered %s", ErrInsufficientPayment, total, params.AmountTendered)
	}

	created := &Sale{
		CreatedBy:        createdBy,
		CustomerName:     strings.TrimSpace(params.CustomerName),
		CustomerPhone:    strings.TrimSpace(params.CustomerPhone),
		CustomerIDNumber: strings.TrimSpace(params.CustomerIDNumber),
		PaymentMethod:    params.PaymentMethod,
		AmountTendered:   params.AmountTendered,
		ChangeDue:        change,
		Total:            total,
		Status:           StatusActive,
		OrderID:          params.OrderID,
	}

	if err := tx.InsertSale(ctx, created); err != nil {
		return nil, fmt.Errorf("inserting sale: %w", err)
	}

	for i := range lines {
		lines[i].SaleID = created.ID
	}

	if err := tx.InsertLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("inserting sale lines: %w", err)
	}

	if params.OrderID != nil {
		if err := tx.FulfillOrder(ctx, *params.OrderID, created.ID); err != nil {
			return nil, fmt.Errorf("fulfilling order %s: %w", *params.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	created.Lines = lines

	s.recordAudit(ctx, audit.Event{
		ActorID:  createdBy,
		Action:   "sale.create",
		Entity:   "sale",
		EntityID: created.ID,
		Detail:   fmt.Sprintf("total=%s lines=%d", total, len(lines)),
	})

	return created, nil
}

// VoidSale reverses an active sale: authorization, window, and reason checks
// first, then stock releases and the status flip in one transaction. The
// checks run against the locked row, so a concurrent void deterministically
// fails with ErrAlreadyVoided.
func (s *Service) VoidSale(ctx context.Context, saleID uuid.UUID, actor auth.Actor, reason string) (*Sale, error) {
	tx, err := s.repo.BeginVoid(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin void: %w", err)
	}
	defer tx.Rollback()

	voided, err := tx.SaleForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if voided.Status != StatusActive {
		return nil, ErrAlreadyVoided
	}

	if !s.gate.Allows(actor, auth.ActionVoidSale) {
		return nil, fmt.Errorf("%w: role %s", ErrUnauthorized, actor.Role)
	}

	if time.Since(voided.CreatedAt) > s.policy.VoidWindow {
		return nil, fmt.Errorf("%w: sale created at %s", ErrWindowExpired, voided.CreatedAt.Format(time.RFC3339))
	}

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.policy.MinReasonLen {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrInvalidReason, s.policy.MinReasonLen)
	}

	for _, line := range voided.Lines {
		if err := tx.ReleaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, fmt.Errorf("releasing stock for %s: %w", line.ProductID, err)
		}
	}

	now := time.Now().UTC()
	voided.Status = StatusVoided
	voided.VoidedBy = &actor.ID
	voided.VoidedAt = &now
	voided.VoidReason = reason

	if err := tx.MarkVoided(ctx, voided); err != nil {
		return nil, fmt.Errorf("marking sale voided: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}

	s.recordAudit(ctx, audit.Event{
		ActorID:  actor.ID,
		Action:   "sale.void",
		Entity:   "sale",
		EntityID: voided.ID,
		Detail:   reason,
	})

	return voided, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func validateCreate(params CreateParams) error {
	if len(params.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrValidation)
	}

	for _, l := range params.Lines {
		if l.ProductID == uuid.Nil {
			return fmt.Errorf("%w: line product id is required", ErrValidation)
		}

		if l.Quantity < 1 {
			return fmt.Errorf("%w: line quantity must be at least 1", ErrValidation)
		}
	}

	if _, err := ParsePaymentMethod(string(params.PaymentMethod)); err != nil {
		return err
	}

	if params.AmountTendered.IsNegative() {
		return fmt.Errorf("%w: amount tendered must not be negative", ErrValidation)
	}

	return nil
}

// Audit failures never fail the business operation; the transaction already
// committed.
func (s *Service) recordAudit(ctx context.Context, e audit.Event) {
	if s.auditor == nil {
		return
	}

	if err := s.auditor.Record(ctx, e); err != nil {
		slog.Warn("failed to record audit event", "action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}
