package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/sale"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectSaleColumns = `
	s.id, s.created_by, s.customer_name, s.customer_phone, s.customer_id_number,
	s.payment_method, s.amount_tendered, s.change_due, s.total, s.status,
	s.order_id, s.voided_by, s.voided_at, s.void_reason, s.created_at
`

func scanSale(sc scanner) (*sale.Sale, error) {
	var s sale.Sale

	var methodStr, statusStr string

	var voidReason sql.NullString

	if err := sc.Scan(
		&s.ID, &s.CreatedBy, &s.CustomerName, &s.CustomerPhone, &s.CustomerIDNumber,
		&methodStr, &s.AmountTendered, &s.ChangeDue, &s.Total, &statusStr,
		&s.OrderID, &s.VoidedBy, &s.VoidedAt, &voidReason, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	s.PaymentMethod = sale.PaymentMethod(methodStr)
	s.Status = sale.Status(statusStr)
	s.VoidReason = voidReason.String

	return &s, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadLines(ctx context.Context, q querier, saleID uuid.UUID) ([]sale.Line, error) {
	query := `
		SELECT sale_id, product_id, quantity, unit_price_snapshot, subtotal
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY product_id
	`

	rows, err := q.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("querying sale lines: %w", err)
	}
	defer rows.Close()

	var lines []sale.Line

	for rows.Next() {
		var l sale.Line
		if err := rows.Scan(&l.SaleID, &l.ProductID, &l.Quantity, &l.UnitPriceSnapshot, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning sale line: %w", err)
		}

		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sale lines: %w", err)
	}

	return lines, nil
}

func (st *Store) GetSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + ` FROM sales s WHERE s.id = $1`

	s, err := scanSale(st.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting sale: %w", err)
	}

	s.Lines, err = loadLines(ctx, st.db, s.ID)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (st *Store) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + ` FROM sales s WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND s.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND s.created_at >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND s.created_at <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY s.created_at DESC"

	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale

	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}

		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sales: %w", err)
	}

	for _, s := range sales {
		if s.Lines, err = loadLines(ctx, st.db, s.ID); err != nil {
			return nil, err
		}
	}

	return sales, nil
}

type checkoutTx struct {
	tx *sql.Tx
}

func (st *Store) BeginCheckout(ctx context.Context) (sale.CheckoutTx, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning checkout tx: %w", err)
	}

	return &checkoutTx{tx: tx}, nil
}

func (c *checkoutTx) Commit() error   { return c.tx.Commit() }
func (c *checkoutTx) Rollback() error { return c.tx.Rollback() }

// ProductForSale locks the product row for the rest of the checkout so
// concurrent reservations on the same product serialize.
func (c *checkoutTx) ProductForSale(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	query := `
		SELECT id, name, unit_price, stock_quantity, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	var p catalog.Product

	err := c.tx.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, catalog.ErrNotFound
		}

		return nil, fmt.Errorf("loading product: %w", err)
	}

	return &p, nil
}

// ReserveStock is the check-and-decrement: the WHERE guard keeps the quantity
// from ever going negative, and zero affected rows means insufficient stock.
func (c *checkoutTx) ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`

	res, err := c.tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking decrement result: %w", err)
	}

	if affected == 0 {
		return sale.ErrInsufficientStock
	}

	return nil
}

func (c *checkoutTx) InsertSale(ctx context.Context, s *sale.Sale) error {
	query := `
		INSERT INTO sales (
			created_by, customer_name, customer_phone, customer_id_number,
			payment_method, amount_tendered, change_due, total, status, order_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	err := c.tx.QueryRowContext(ctx, query,
		s.CreatedBy,
		s.CustomerName,
		s.CustomerPhone,
		s.CustomerIDNumber,
		s.PaymentMethod,
		s.AmountTendered,
		s.ChangeDue,
		s.Total,
		s.Status,
		s.OrderID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}

	return nil
}

func (c *checkoutTx) InsertLines(ctx context.Context, lines []sale.Line) error {
	query := `
		INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price_snapshot, subtotal)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, l := range lines {
		if _, err := c.tx.ExecContext(ctx, query,
			l.SaleID,
			l.ProductID,
			l.Quantity,
			l.UnitPriceSnapshot,
			l.Subtotal,
		); err != nil {
			return fmt.Errorf("inserting sale line: %w", err)
		}
	}

	return nil
}

// FulfillOrder links an open order to the sale. An order already fulfilled
// by another sale is rejected.
func (c *checkoutTx) FulfillOrder(ctx context.Context, orderID, saleID uuid.UUID) error {
	query := `
		UPDATE orders
		SET sale_id = $2
		WHERE id = $1 AND sale_id IS NULL
	`

	res, err := c.tx.ExecContext(ctx, query, orderID, saleID)
	if err != nil {
		return fmt.Errorf("fulfilling order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking order update result: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: order %s is missing or already fulfilled", sale.ErrValidation, orderID)
	}

	return nil
}

type voidTx struct {
	tx *sql.Tx
}

func (st *Store) BeginVoid(ctx context.Context) (sale.VoidTx, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning void tx: %w", err)
	}

	return &voidTx{tx: tx}, nil
}

func (v *voidTx) Commit() error   { return v.tx.Commit() }
func (v *voidTx) Rollback() error { return v.tx.Rollback() }

// SaleForUpdate locks the sale row. Of two concurrent void attempts the
// second blocks here and then observes status = voided.
func (v *voidTx) SaleForUpdate(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + ` FROM sales s WHERE s.id = $1 FOR UPDATE`

	s, err := scanSale(v.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("locking sale: %w", err)
	}

	s.Lines, err = loadLines(ctx, v.tx, s.ID)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (v *voidTx) ReleaseStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := v.tx.ExecContext(ctx, query, productID, quantity); err != nil {
		return fmt.Errorf("restoring stock: %w", err)
	}

	return nil
}

func (v *voidTx) MarkVoided(ctx context.Context, s *sale.Sale) error {
	query := `
		UPDATE sales
		SET status = $2, voided_by = $3, voided_at = $4, void_reason = $5
		WHERE id = $1
	`

	if _, err := v.tx.ExecContext(ctx, query,
		s.ID,
		s.Status,
		s.VoidedBy,
		s.VoidedAt,
		s.VoidReason,
	); err != nil {
		return fmt.Errorf("updating sale status: %w", err)
	}

	return nil
}
