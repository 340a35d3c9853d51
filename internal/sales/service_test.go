package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
)

type memoryStore struct {
	products map[uuid.UUID]catalog.Product
	sales    []Sale
	daily    map[string]DailySales
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: map[uuid.UUID]catalog.Product{},
		daily:    map[string]DailySales{},
	}
}

func (m *memoryStore) addProduct(p catalog.Product) catalog.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Unit == "" {
		p.Unit = catalog.UnitPiece
	}
	p.IsActive = true
	m.products[p.ID] = p
	return p
}

type catalogFake struct {
	store *memoryStore
}

func (c *catalogFake) Get(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := c.store.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (c *catalogFake) GetByCode(_ context.Context, code string) (catalog.Product, error) {
	for _, p := range c.store.products {
		if p.Code == code && p.IsActive {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

type taxFake struct {
	rate float64
}

func (t *taxFake) TaxRate(_ context.Context) (float64, error) {
	return t.rate, nil
}

type memoryRepo struct {
	store *memoryStore
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	snapshot := m.snapshot()
	if err := fn(ctx, &memoryTx{store: m.store}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memoryRepo) snapshot() *memoryStore {
	s := newMemoryStore()
	for id, p := range m.store.products {
		s.products[id] = p
	}
	s.sales = append([]Sale(nil), m.store.sales...)
	for k, v := range m.store.daily {
		s.daily[k] = v
	}
	return s
}

func (m *memoryRepo) restore(s *memoryStore) {
	m.store.products = s.products
	m.store.sales = s.sales
	m.store.daily = s.daily
}

func (m *memoryRepo) GetSale(_ context.Context, id uuid.UUID) (Sale, error) {
	for _, s := range m.store.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return Sale{}, ErrNotFound
}

func (m *memoryRepo) ListSales(_ context.Context, limit, offset int) ([]Sale, error) {
	if offset >= len(m.store.sales) {
		return nil, nil
	}
	out := m.store.sales[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]Sale(nil), out...), nil
}

func (m *memoryRepo) ListSalesByDate(_ context.Context, date string) ([]Sale, error) {
	var out []Sale
	for _, s := range m.store.sales {
		if s.BusinessDate == date {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetDailySales(ctx context.Context, date string) (DailySales, error) {
	agg, ok := m.store.daily[date]
	if !ok {
		return DailySales{}, ErrNotFound
	}
	agg.Sales, _ = m.ListSalesByDate(ctx, date)
	return agg, nil
}

func (m *memoryRepo) ListDailySales(_ context.Context) ([]DailySales, error) {
	var out []DailySales
	for _, agg := range m.store.daily {
		out = append(out, agg)
	}
	return out, nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, id uuid.UUID) (float64, bool, error) {
	p, ok := t.store.products[id]
	if !ok {
		return 0, false, ErrProductUnavailable
	}
	return p.Stock, p.IsActive, nil
}

func (t *memoryTx) AdjustProductStock(_ context.Context, id uuid.UUID, delta float64) error {
	p, ok := t.store.products[id]
	if !ok {
		return ErrProductUnavailable
	}
	p.Stock += delta
	t.store.products[id] = p
	return nil
}

func (t *memoryTx) InsertSale(_ context.Context, sale Sale) error {
	t.store.sales = append(t.store.sales, sale)
	return nil
}

func (t *memoryTx) RefoldDailySales(_ context.Context, date string) error {
	agg := DailySales{Date: date}
	for _, s := range t.store.sales {
		if s.BusinessDate != date {
			continue
		}
		agg.TotalSales++
		agg.TotalAmount += s.Total
		switch s.PaymentMethod {
		case PaymentCash:
			agg.CashSales += s.Total
		case PaymentCard:
			agg.CardSales += s.Total
		case PaymentCredit:
			agg.CreditSales += s.Total
		}
	}
	t.store.daily[date] = agg
	return nil
}

func newTestService(t *testing.T, rate float64) (*Service, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	svc := NewService(
		&memoryRepo{store: store},
		&catalogFake{store: store},
		&taxFake{rate: rate},
		NewBusinessCalendar(time.UTC),
		nil,
	)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	}
	return svc, store
}

func TestBuildSaleItemComputesSubtotal(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	piece := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 50, Stock: 10})
	weight := store.addProduct(catalog.Product{Code: "W-1", Name: "Queso", Price: 300, Stock: 5, Unit: catalog.UnitWeight})
	ctx := context.Background()

	item, err := svc.BuildSaleItem(ctx, piece.ID, 3, nil)
	require.NoError(t, err)
	require.InDelta(t, 150, item.Subtotal, 1e-9)
	require.InDelta(t, 3, item.EffectiveQuantity(), 1e-9)

	w := 1.25
	item, err = svc.BuildSaleItem(ctx, weight.ID, 1, &w)
	require.NoError(t, err)
	require.InDelta(t, 1.25, item.EffectiveQuantity(), 1e-9)
	require.InDelta(t, 375, item.Subtotal, 1e-9)

	// building never mutates the catalog
	require.InDelta(t, 10, store.products[piece.ID].Stock, 1e-9)
	require.InDelta(t, 5, store.products[weight.ID].Stock, 1e-9)
}

func TestBuildSaleItemInsufficientStock(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 50, Stock: 2})

	_, err := svc.BuildSaleItem(context.Background(), p.ID, 3, nil)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.InDelta(t, 2, stockErr.Available, 1e-9)
	require.InDelta(t, 3, stockErr.Requested, 1e-9)
	require.InDelta(t, 2, store.products[p.ID].Stock, 1e-9)
}

func TestBuildSaleItemRejectsInactiveProduct(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 50, Stock: 10})
	retired := store.products[p.ID]
	retired.IsActive = false
	store.products[p.ID] = retired

	_, err := svc.BuildSaleItem(context.Background(), p.ID, 1, nil)
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCalculateTotalsAppliesTaxRate(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 37.5, Stock: 100})
	ctx := context.Background()

	a, err := svc.BuildSaleItem(ctx, p.ID, 2, nil)
	require.NoError(t, err)
	b, err := svc.BuildSaleItem(ctx, p.ID, 5, nil)
	require.NoError(t, err)

	totals, err := svc.CalculateTotals(ctx, []SaleItem{a, b})
	require.NoError(t, err)
	require.InDelta(t, a.Subtotal+b.Subtotal, totals.Subtotal, 1e-9)
	require.InDelta(t, totals.Subtotal*0.18, totals.Tax, 1e-9)
	require.InDelta(t, totals.Subtotal*1.18, totals.Total, 1e-9)
}

func TestGetDailySalesIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, 0.18)
	ctx := context.Background()

	first, err := svc.GetDailySales(ctx, "2026-03-14")
	require.NoError(t, err)
	second, err := svc.GetDailySales(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Zero(t, first.TotalSales)
	require.Empty(t, first.Sales)
}

func TestProcessCashSaleRejectsUnderpayment(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 100, Stock: 10})
	ctx := context.Background()

	item, err := svc.BuildSaleItem(ctx, p.ID, 1, nil)
	require.NoError(t, err)

	_, err = svc.ProcessSale(ctx, ProcessSaleInput{
		Items:         []SaleItem{item},
		PaymentMethod: PaymentCash,
		AmountPaid:    100, // total is 118
		CashierID:     "u1",
		CashierName:   "Ana",
	})
	require.ErrorIs(t, err, ErrInsufficientPayment)

	require.Empty(t, store.sales)
	require.InDelta(t, 10, store.products[p.ID].Stock, 1e-9)
	require.Empty(t, store.daily)
}

func TestProcessCashSaleHappyPath(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})
	ctx := context.Background()

	item, err := svc.BuildSaleItem(ctx, p.ID, 2, nil)
	require.NoError(t, err)

	sale, err := svc.ProcessSale(ctx, ProcessSaleInput{
		Items:         []SaleItem{item},
		PaymentMethod: PaymentCash,
		AmountPaid:    60,
		CashierID:     "u1",
		CashierName:   "Ana",
	})
	require.NoError(t, err)
	require.InDelta(t, 50, sale.Subtotal, 1e-9)
	require.InDelta(t, 9, sale.Tax, 1e-9)
	require.InDelta(t, 59, sale.Total, 1e-9)
	require.InDelta(t, 1, sale.Change, 1e-9)
	require.Equal(t, "2026-03-14", sale.BusinessDate)

	require.InDelta(t, 8, store.products[p.ID].Stock, 1e-9)

	agg, err := svc.GetTodaysSales(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, agg.TotalSales)
	require.InDelta(t, 59, agg.TotalAmount, 1e-9)
	require.InDelta(t, 59, agg.CashSales, 1e-9)
	require.Len(t, agg.Sales, 1)
}

func TestProcessCreditSaleRequiresCustomer(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})
	ctx := context.Background()

	item, err := svc.BuildSaleItem(ctx, p.ID, 1, nil)
	require.NoError(t, err)

	_, err = svc.ProcessSale(ctx, ProcessSaleInput{
		Items:         []SaleItem{item},
		PaymentMethod: PaymentCredit,
		CashierID:     "u1",
		CashierName:   "Ana",
	})
	require.ErrorIs(t, err, ErrMissingCustomer)
	require.Empty(t, store.sales)
	require.InDelta(t, 10, store.products[p.ID].Stock, 1e-9)
}

func TestProcessSaleRejectsEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, 0.18)

	_, err := svc.ProcessSale(context.Background(), ProcessSaleInput{
		PaymentMethod: PaymentCash,
		AmountPaid:    100,
		CashierID:     "u1",
		CashierName:   "Ana",
	})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutRollsBackWhenAnyLineLacksStock(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	a := store.addProduct(catalog.Product{Code: "A", Name: "Refresco", Price: 25, Stock: 10})
	b := store.addProduct(catalog.Product{Code: "B", Name: "Galletas", Price: 40, Stock: 5})
	ctx := context.Background()

	itemA, err := svc.BuildSaleItem(ctx, a.ID, 2, nil)
	require.NoError(t, err)
	itemB, err := svc.BuildSaleItem(ctx, b.ID, 5, nil)
	require.NoError(t, err)

	// another till drains product B between cart build and checkout
	drained := store.products[b.ID]
	drained.Stock = 3
	store.products[b.ID] = drained

	_, err = svc.ProcessSale(ctx, ProcessSaleInput{
		Items:         []SaleItem{itemA, itemB},
		PaymentMethod: PaymentCash,
		AmountPaid:    500,
		CashierID:     "u1",
		CashierName:   "Ana",
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, b.ID, stockErr.ProductID)

	require.Empty(t, store.sales)
	require.InDelta(t, 10, store.products[a.ID].Stock, 1e-9)
	require.InDelta(t, 3, store.products[b.ID].Stock, 1e-9)
}

func TestCreditSaleEmbedsCustomerSnapshot(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})
	ctx := context.Background()

	item, err := svc.BuildSaleItem(ctx, p.ID, 1, nil)
	require.NoError(t, err)

	customer := &CustomerInfo{
		ID:     uuid.New(),
		Name:   "Juan Pérez",
		Email:  "juan@example.com",
		IDCard: "001-0000001-1",
	}
	sale, err := svc.ProcessSale(ctx, ProcessSaleInput{
		Items:         []SaleItem{item},
		PaymentMethod: PaymentCredit,
		CashierID:     "u1",
		CashierName:   "Ana",
		Customer:      customer,
	})
	require.NoError(t, err)
	require.NotNil(t, sale.Customer)
	require.Equal(t, "Juan Pérez", sale.Customer.Name)
	require.InDelta(t, 0, sale.Change, 1e-9)

	stored, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, customer.IDCard, stored.Customer.IDCard)
}

func TestDailyAggregateHasNoDrift(t *testing.T) {
	svc, store := newTestService(t, 0.18)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 19.99, Stock: 1000})
	ctx := context.Background()
	methods := []PaymentMethod{PaymentCash, PaymentCard, PaymentCash, PaymentCard, PaymentCash}

	for i, method := range methods {
		item, err := svc.BuildSaleItem(ctx, p.ID, i+1, nil)
		require.NoError(t, err)
		_, err = svc.ProcessSale(ctx, ProcessSaleInput{
			Items:         []SaleItem{item},
			PaymentMethod: method,
			AmountPaid:    10000,
			CashierID:     "u1",
			CashierName:   "Ana",
		})
		require.NoError(t, err)
	}

	agg, err := svc.GetTodaysSales(ctx)
	require.NoError(t, err)
	require.Equal(t, len(methods), agg.TotalSales)

	var total, cash, card float64
	for _, s := range agg.Sales {
		total += s.Total
		switch s.PaymentMethod {
		case PaymentCash:
			cash += s.Total
		case PaymentCard:
			card += s.Total
		}
	}
	require.InDelta(t, total, agg.TotalAmount, 1e-9)
	require.InDelta(t, cash, agg.CashSales, 1e-9)
	require.InDelta(t, card, agg.CardSales, 1e-9)
	require.InDelta(t, 0, agg.CreditSales, 1e-9)
}
