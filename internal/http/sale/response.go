package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jvillar/tienda/internal/sale"
)

type saleResponse struct {
	ID               uuid.UUID          `json:"id"`
	CreatedBy        uuid.UUID          `json:"created_by"`
	CustomerName     string             `json:"customer_name,omitempty"`
	CustomerPhone    string             `json:"customer_phone,omitempty"`
	CustomerIDNumber string             `json:"customer_id_number,omitempty"`
	PaymentMethod    sale.PaymentMethod `json:"payment_method"`
	AmountTendered   decimal.Decimal    `json:"amount_tendered"`
	ChangeDue        decimal.Decimal    `json:"change_due"`
	Total            decimal.Decimal    `json:"total"`
	Status           sale.Status        `json:"status"`
	OrderID          *uuid.UUID         `json:"order_id,omitempty"`
	VoidedBy         *uuid.UUID         `json:"voided_by,omitempty"`
	VoidedAt         *time.Time         `json:"voided_at,omitempty"`
	VoidReason       string             `json:"void_reason,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Lines            []lineResponse     `json:"lines"`
}

type lineResponse struct {
	ProductID         uuid.UUID       `json:"product_id"`
	Quantity          int             `json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `json:"unit_price_snapshot"`
	Subtotal          decimal.Decimal `json:"subtotal"`
}

func toResponse(s *sale.Sale) saleResponse {
	resp := saleResponse{
		ID:               s.ID,
		CreatedBy:        s.CreatedBy,
		CustomerName:     s.CustomerName,
		CustomerPhone:    s.CustomerPhone,
		CustomerIDNumber: s.CustomerIDNumber,
		PaymentMethod:    s.PaymentMethod,
		AmountTendered:   s.AmountTendered,
		ChangeDue:        s.ChangeDue,
		Total:            s.Total,
		Status:           s.Status,
		OrderID:          s.OrderID,
		VoidedBy:         s.VoidedBy,
		VoidedAt:         s.VoidedAt,
		VoidReason:       s.VoidReason,
		CreatedAt:        s.CreatedAt,
		Lines:            make([]lineResponse, 0, len(s.Lines)),
	}

	for _, l := range s.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID:         l.ProductID,
			Quantity:          l.Quantity,
			UnitPriceSnapshot: l.UnitPriceSnapshot,
			Subtotal:          l.Subtotal,
		})
	}

	return resp
}

func toResponseList(sales []*sale.Sale) []saleResponse {
	resp := make([]saleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toResponse(s)
	}

	return resp
}
