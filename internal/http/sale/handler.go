package sale

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jvillar/tienda/internal/auth"
	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/receipt"
	"github.com/jvillar/tienda/internal/sale"
)

type Handler struct {
	svc       *sale.Service
	catalog   *catalog.Service
	gate      auth.Gate
	storeName string
}

func NewHandler(svc *sale.Service, catalogSvc *catalog.Service, gate auth.Gate, storeName string) *Handler {
	return &Handler{
		svc:       svc,
		catalog:   catalogSvc,
		gate:      gate,
		storeName: storeName,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/receipt", h.getReceipt)
	r.Post("/{id}/void", h.void)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeSaleError maps the engine's error taxonomy onto status codes: 404 for
// missing things, 422 for business rules and bad input, 403 for role
// rejections, 500 for the rest.
func writeSaleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sale.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "sale not found")
	case errors.Is(err, sale.ErrProductUnavailable):
		writeError(w, http.StatusNotFound, "product_unavailable", err.Error())
	case errors.Is(err, sale.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_stock", err.Error())
	case errors.Is(err, sale.ErrInsufficientPayment):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_payment", err.Error())
	case errors.Is(err, sale.ErrAlreadyVoided):
		writeError(w, http.StatusUnprocessableEntity, "already_voided", err.Error())
	case errors.Is(err, sale.ErrWindowExpired):
		writeError(w, http.StatusUnprocessableEntity, "window_expired", err.Error())
	case errors.Is(err, sale.ErrInvalidReason):
		writeError(w, http.StatusUnprocessableEntity, "invalid_reason", err.Error())
	case errors.Is(err, sale.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, sale.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation", err.Error())
	default:
		slog.Error("sale operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error, retry later")
	}
}

type createLineDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type createSaleRequest struct {
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	CustomerIDNumber string          `json:"customer_id_number"`
	Lines            []createLineDTO `json:"lines"`
	PaymentMethod    string          `json:"payment_method"`
	AmountTendered   decimal.Decimal `json:"amount_tendered"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	method, err := sale.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	params := sale.CreateParams{
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerIDNumber: req.CustomerIDNumber,
		PaymentMethod:    method,
		AmountTendered:   req.AmountTendered,
		OrderID:          req.OrderID,
	}

	for _, l := range req.Lines {
		params.Lines = append(params.Lines, sale.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	// Authenticated actors must be allowed to sell; an absent actor falls
	// back to the configured default seller.
	if actor, ok := auth.FromContext(r.Context()); ok {
		if !h.gate.Allows(actor, auth.ActionCreateSale) {
			writeError(w, http.StatusForbidden, "forbidden", "role may not create sales")
			return
		}

		params.CreatedBy = &actor.ID
	}

	created, err := h.svc.CreateSale(r.Context(), params)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(created)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type voidSaleRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid sale id")
		return
	}

	actor, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "voiding requires an authenticated actor")
		return
	}

	var req voidSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	voided, err := h.svc.VoidSale(r.Context(), id, actor, req.Reason)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(voided)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid sale id")
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(s)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := sale.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := sale.Status(s)
		filter.Status = &status
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	sales, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(sales)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid sale id")
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeSaleError(w, err)
		return
	}

	products := make(map[string]*catalog.Product, len(s.Lines))

	for _, line := range s.Lines {
		p, err := h.catalog.Get(r.Context(), line.ProductID)
		if err != nil {
			continue // fall back to the id prefix on the receipt
		}

		products[line.ProductID.String()] = p
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(receipt.Render(h.storeName, s, products))); err != nil {
		slog.Error("failed to write receipt", "error", err)
	}
}
