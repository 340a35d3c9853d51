package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
	"github.com/colmado-pos/colmado-pos/internal/shared"
)

// CatalogPort is the slice of the product catalog the sales engine reads.
// Stock mutation happens inside the checkout transaction, not through this
// port.
type CatalogPort interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	GetByCode(ctx context.Context, code string) (catalog.Product, error)
}

// TaxProvider supplies the configured tax rate.
type TaxProvider interface {
	TaxRate(ctx context.Context) (float64, error)
}

// AuditPort records completed checkouts.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// ProcessSaleInput carries everything the processor needs for one checkout.
// Credit password verification happens before this call, in the handler.
type ProcessSaleInput struct {
	Items         []SaleItem
	PaymentMethod PaymentMethod
	AmountPaid    float64
	CashierID     string
	CashierName   string
	Customer      *CustomerInfo
}

// Service is the sales transaction engine.
type Service struct {
	repo     Repository
	catalog  CatalogPort
	tax      TaxProvider
	calendar *BusinessCalendar
	audit    AuditPort
	now      func() time.Time
}

func NewService(repo Repository, cat CatalogPort, tax TaxProvider, cal *BusinessCalendar, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		tax:      tax,
		calendar: cal,
		audit:    audit,
		now:      time.Now,
	}
}

// BuildSaleItem prices one line for the cart. It never mutates the catalog;
// the stock check here is advisory and is repeated under lock at checkout.
func (s *Service) BuildSaleItem(ctx context.Context, productID uuid.UUID, quantity int, weight *float64) (SaleItem, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return SaleItem{}, ErrProductUnavailable
	}
	return s.buildLine(p, quantity, weight)
}

// BuildSaleItemByCode prices a line from a scanned or typed product code.
func (s *Service) BuildSaleItemByCode(ctx context.Context, code string, quantity int, weight *float64) (SaleItem, error) {
	p, err := s.catalog.GetByCode(ctx, code)
	if err != nil {
		return SaleItem{}, ErrProductUnavailable
	}
	return s.buildLine(p, quantity, weight)
}

func (s *Service) buildLine(p catalog.Product, quantity int, weight *float64) (SaleItem, error) {
	if !p.IsActive {
		return SaleItem{}, ErrProductUnavailable
	}
	if weight != nil && !p.Unit.Fractional() {
		weight = nil
	}

	item := SaleItem{
		ID:        uuid.New(),
		ProductID: p.ID,
		Product: ProductSnapshot{
			Code:     p.Code,
			Name:     p.Name,
			Category: p.Category,
			Unit:     string(p.Unit),
		},
		Quantity:  quantity,
		Weight:    weight,
		UnitPrice: p.Price,
	}

	eff := item.EffectiveQuantity()
	if eff <= 0 {
		return SaleItem{}, fmt.Errorf("sales: effective quantity must be positive")
	}
	if eff > p.Stock {
		return SaleItem{}, &InsufficientStockError{ProductID: p.ID, Requested: eff, Available: p.Stock}
	}

	item.Subtotal = item.UnitPrice * eff
	return item, nil
}

// CalculateTotals prices a cart. Pure over its inputs apart from the
// configured tax rate lookup.
func (s *Service) CalculateTotals(ctx context.Context, items []SaleItem) (Totals, error) {
	rate, err := s.tax.TaxRate(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("resolve tax rate: %w", err)
	}
	var t Totals
	for _, item := range items {
		t.Subtotal += item.Subtotal
	}
	t.Tax = t.Subtotal * rate
	t.Total = t.Subtotal + t.Tax
	return t, nil
}

// ProcessSale runs one checkout. Validation short-circuits before any
// mutation; stock decrements, the sale record, and the daily rollup all
// commit in one transaction or not at all.
func (s *Service) ProcessSale(ctx context.Context, in ProcessSaleInput) (Sale, error) {
	if len(in.Items) == 0 {
		return Sale{}, ErrEmptyCart
	}
	if !in.PaymentMethod.Valid() {
		return Sale{}, fmt.Errorf("sales: unknown payment method %q", in.PaymentMethod)
	}

	totals, err := s.CalculateTotals(ctx, in.Items)
	if err != nil {
		return Sale{}, err
	}

	if in.PaymentMethod == PaymentCash && in.AmountPaid < totals.Total {
		return Sale{}, ErrInsufficientPayment
	}
	if in.PaymentMethod == PaymentCredit && in.Customer == nil {
		return Sale{}, ErrMissingCustomer
	}

	change := 0.0
	if in.PaymentMethod == PaymentCash {
		change = in.AmountPaid - totals.Total
	}

	now := s.now()
	sale := Sale{
		ID:            uuid.New(),
		Items:         in.Items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: in.PaymentMethod,
		AmountPaid:    in.AmountPaid,
		Change:        change,
		CashierID:     in.CashierID,
		CashierName:   in.CashierName,
		Customer:      in.Customer,
		BusinessDate:  s.calendar.DateOf(now),
		Timestamp:     now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// lock and check every line before touching any stock
		for _, item := range sale.Items {
			stock, active, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !active {
				return ErrProductUnavailable
			}
			if eff := item.EffectiveQuantity(); eff > stock {
				return &InsufficientStockError{ProductID: item.ProductID, Requested: eff, Available: stock}
			}
		}
		for _, item := range sale.Items {
			if err := tx.AdjustProductStock(ctx, item.ProductID, -item.EffectiveQuantity()); err != nil {
				return err
			}
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		return tx.RefoldDailySales(ctx, sale.BusinessDate)
	})
	if err != nil {
		return Sale{}, err
	}

	s.auditRecord(ctx, sale)
	return sale, nil
}

// GetDailySales returns the aggregate for a business date, or a zero
// aggregate when no sale has landed on that date yet.
func (s *Service) GetDailySales(ctx context.Context, date string) (DailySales, error) {
	agg, err := s.repo.GetDailySales(ctx, date)
	if errors.Is(err, ErrNotFound) {
		return DailySales{Date: date, Sales: []Sale{}}, nil
	}
	if err != nil {
		return DailySales{}, err
	}
	return agg, nil
}

// GetTodaysSales is GetDailySales for the current business date.
func (s *Service) GetTodaysSales(ctx context.Context) (DailySales, error) {
	return s.GetDailySales(ctx, s.calendar.DateOf(s.now()))
}

// GetAllDailySales returns the aggregate history, newest date first.
func (s *Service) GetAllDailySales(ctx context.Context) ([]DailySales, error) {
	return s.repo.ListDailySales(ctx)
}

func (s *Service) GetAllSales(ctx context.Context, limit, offset int) ([]Sale, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListSales(ctx, limit, offset)
}

func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) auditRecord(ctx context.Context, sale Sale) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  sale.CashierID,
		Action:   "sale.create",
		Entity:   "sale",
		EntityID: sale.ID.String(),
		Meta: map[string]any{
			"total":          sale.Total,
			"payment_method": string(sale.PaymentMethod),
			"business_date":  sale.BusinessDate,
		},
	})
}
