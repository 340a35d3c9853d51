package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/colmado-pos/colmado-pos/internal/customers"
	"github.com/colmado-pos/colmado-pos/internal/platform/httpx"
)

// CustomerPort is the customer ledger surface the checkout flow needs. The
// password gate runs here, around the processor, never inside it.
type CustomerPort interface {
	Get(ctx context.Context, id uuid.UUID) (customers.Customer, error)
	VerifyPassword(ctx context.Context, id uuid.UUID, password string) error
	RecordPurchase(ctx context.Context, id uuid.UUID, amount float64, onCredit bool) error
}

type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers CustomerPort
	settings  SettingsPort
	validate  *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, customerPort CustomerPort, settingsPort SettingsPort) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		customers: customerPort,
		settings:  settingsPort,
		validate:  validator.New(),
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Route("/cart", func(r chi.Router) {
		r.Post("/items", h.buildItem)
		r.Post("/totals", h.totals)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/today", h.today)
		r.Get("/daily", h.dailyHistory)
		r.Get("/daily/{date}", h.daily)
		r.Get("/{id}", h.get)
		r.Get("/{id}/receipt", h.receipt)
	})
}

type buildItemRequest struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Code      string     `json:"code,omitempty"`
	Quantity  int        `json:"quantity" validate:"gte=0"`
	Weight    *float64   `json:"weight,omitempty" validate:"omitempty,gt=0"`
}

func (h *Handler) buildItem(w http.ResponseWriter, r *http.Request) {
	var req buildItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	var (
		item SaleItem
		err  error
	)
	switch {
	case req.ProductID != nil:
		item, err = h.service.BuildSaleItem(r.Context(), *req.ProductID, req.Quantity, req.Weight)
	case req.Code != "":
		item, err = h.service.BuildSaleItemByCode(r.Context(), req.Code, req.Quantity, req.Weight)
	default:
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "product_id or code is required")
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type totalsRequest struct {
	Items []SaleItem `json:"items"`
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	t, err := h.service.CalculateTotals(r.Context(), req.Items)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

type checkoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
	Weight    *float64  `json:"weight,omitempty" validate:"omitempty,gt=0"`
}

type checkoutRequest struct {
	Items            []checkoutItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod    string         `json:"payment_method" validate:"required,oneof=cash card credit"`
	AmountPaid       float64        `json:"amount_paid" validate:"gte=0"`
	CashierID        string         `json:"cashier_id" validate:"required"`
	CashierName      string         `json:"cashier_name" validate:"required"`
	CustomerID       *uuid.UUID     `json:"customer_id,omitempty"`
	CustomerPassword string         `json:"customer_password,omitempty"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	items := make([]SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		item, err := h.service.BuildSaleItem(r.Context(), line.ProductID, line.Quantity, line.Weight)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		items = append(items, item)
	}

	var customerInfo *CustomerInfo
	if PaymentMethod(req.PaymentMethod) == PaymentCredit {
		if req.CustomerID == nil {
			h.respondError(w, r, ErrMissingCustomer)
			return
		}
		if err := h.customers.VerifyPassword(r.Context(), *req.CustomerID, req.CustomerPassword); err != nil {
			h.respondError(w, r, err)
			return
		}
		c, err := h.customers.Get(r.Context(), *req.CustomerID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		customerInfo = &CustomerInfo{
			ID:     c.ID,
			Name:   c.Name,
			Email:  c.Email,
			Phone:  c.Phone,
			IDCard: c.IDCard,
		}
	}

	sale, err := h.service.ProcessSale(r.Context(), ProcessSaleInput{
		Items:         items,
		PaymentMethod: PaymentMethod(req.PaymentMethod),
		AmountPaid:    req.AmountPaid,
		CashierID:     req.CashierID,
		CashierName:   req.CashierName,
		Customer:      customerInfo,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if customerInfo != nil {
		if err := h.customers.RecordPurchase(r.Context(), customerInfo.ID, sale.Total, sale.PaymentMethod == PaymentCredit); err != nil {
			h.logger.Error("record customer purchase failed", "customer_id", customerInfo.ID, "error", err)
		}
	}

	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	out, err := h.service.GetAllSales(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if out == nil {
		out = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.GetTodaysSales(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

func (h *Handler) dailyHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetAllDailySales(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if out == nil {
		out = []DailySales{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid date", "expected YYYY-MM-DD")
		return
	}
	agg, err := h.service.GetDailySales(r.Context(), date)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "sale id must be a uuid")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "sale id must be a uuid")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, BuildReceipt(sale, cfg))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.Problem(w, http.StatusConflict, "insufficient stock", stockErr.Error())
	case errors.Is(err, ErrEmptyCart):
		httpx.Problem(w, http.StatusUnprocessableEntity, "empty cart", "at least one item is required")
	case errors.Is(err, ErrInsufficientPayment):
		httpx.Problem(w, http.StatusUnprocessableEntity, "insufficient payment", "amount paid is below the total")
	case errors.Is(err, ErrMissingCustomer):
		httpx.Problem(w, http.StatusUnprocessableEntity, "missing customer", "credit sales require a customer")
	case errors.Is(err, ErrProductUnavailable):
		httpx.Problem(w, http.StatusNotFound, "product unavailable", "product not found or inactive")
	case errors.Is(err, ErrNotFound), errors.Is(err, customers.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "not found", "record does not exist")
	case errors.Is(err, customers.ErrBadPassword):
		httpx.Problem(w, http.StatusUnauthorized, "invalid password", "credit password does not match")
	case errors.Is(err, customers.ErrTooManyAttempts):
		httpx.Problem(w, http.StatusTooManyRequests, "account locked", "too many failed attempts, try again later")
	default:
		h.logger.Error("sales request failed", "path", r.URL.Path, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "unexpected failure")
	}
}
