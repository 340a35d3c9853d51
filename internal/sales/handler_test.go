package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
	"github.com/colmado-pos/colmado-pos/internal/customers"
	"github.com/colmado-pos/colmado-pos/internal/settings"
)

type settingsFake struct{}

func (settingsFake) Get(_ context.Context) (settings.POSSettings, error) {
	return settings.Defaults(), nil
}

type recordedPurchase struct {
	amount   float64
	onCredit bool
}

type customerFake struct {
	customer  customers.Customer
	password  string
	purchases []recordedPurchase
}

func (c *customerFake) Get(_ context.Context, id uuid.UUID) (customers.Customer, error) {
	if c.customer.ID != id {
		return customers.Customer{}, customers.ErrNotFound
	}
	return c.customer, nil
}

func (c *customerFake) VerifyPassword(_ context.Context, id uuid.UUID, password string) error {
	if c.customer.ID != id {
		return customers.ErrNotFound
	}
	if password != c.password {
		return customers.ErrBadPassword
	}
	return nil
}

func (c *customerFake) RecordPurchase(_ context.Context, _ uuid.UUID, amount float64, onCredit bool) error {
	c.purchases = append(c.purchases, recordedPurchase{amount: amount, onCredit: onCredit})
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memoryStore, *customerFake) {
	t.Helper()
	svc, store := newTestService(t, 0.18)
	fake := &customerFake{
		customer: customers.Customer{
			ID:     uuid.New(),
			Name:   "Juan Pérez",
			Email:  "juan@example.com",
			IDCard: "001-0000001-1",
		},
		password: "secreto",
	}

	h := NewHandler(slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)), svc, fake, settingsFake{})
	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, fake
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestCheckoutCashSale(t *testing.T) {
	srv, store, _ := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 2}},
		"payment_method": "cash",
		"amount_paid":    60,
		"cashier_id":     "u1",
		"cashier_name":   "Ana",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sale Sale
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sale))
	require.InDelta(t, 59, sale.Total, 1e-9)
	require.InDelta(t, 1, sale.Change, 1e-9)
	require.InDelta(t, 8, store.products[p.ID].Stock, 1e-9)
}

func TestCheckoutRejectsUnderpaidCash(t *testing.T) {
	srv, store, _ := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 100, Stock: 10})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 1}},
		"payment_method": "cash",
		"amount_paid":    100,
		"cashier_id":     "u1",
		"cashier_name":   "Ana",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Empty(t, store.sales)
}

func TestCheckoutCreditSale(t *testing.T) {
	srv, store, fake := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":             []map[string]any{{"product_id": p.ID, "quantity": 2}},
		"payment_method":    "credit",
		"cashier_id":        "u1",
		"cashier_name":      "Ana",
		"customer_id":       fake.customer.ID,
		"customer_password": "secreto",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sale Sale
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sale))
	require.NotNil(t, sale.Customer)
	require.Equal(t, "Juan Pérez", sale.Customer.Name)
	require.Len(t, fake.purchases, 1)
	require.InDelta(t, 59, fake.purchases[0].amount, 1e-9)
	require.True(t, fake.purchases[0].onCredit)
}

func TestCheckoutCreditSaleWrongPassword(t *testing.T) {
	srv, store, fake := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":             []map[string]any{{"product_id": p.ID, "quantity": 1}},
		"payment_method":    "credit",
		"cashier_id":        "u1",
		"cashier_name":      "Ana",
		"customer_id":       fake.customer.ID,
		"customer_password": "mala",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, store.sales)
	require.InDelta(t, 10, store.products[p.ID].Stock, 1e-9)
}

func TestCheckoutInsufficientStockConflict(t *testing.T) {
	srv, store, _ := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 1})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 2}},
		"payment_method": "cash",
		"amount_paid":    100,
		"cashier_id":     "u1",
		"cashier_name":   "Ana",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBuildCartItemByCode(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.addProduct(catalog.Product{Code: "7460001", Name: "Refresco", Price: 25, Stock: 10})

	resp := postJSON(t, srv.URL+"/cart/items", map[string]any{
		"code":     "7460001",
		"quantity": 2,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var item SaleItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	require.InDelta(t, 50, item.Subtotal, 1e-9)
}

func TestReceiptForCompletedSale(t *testing.T) {
	srv, store, _ := newTestServer(t)
	p := store.addProduct(catalog.Product{Code: "P-1", Name: "Refresco", Price: 25, Stock: 10})

	resp := postJSON(t, srv.URL+"/checkout", map[string]any{
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 2}},
		"payment_method": "cash",
		"amount_paid":    60,
		"cashier_id":     "u1",
		"cashier_name":   "Ana",
	})
	var sale Sale
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sale))
	resp.Body.Close()

	resp, err := http.Get(fmt.Sprintf("%s/sales/%s/receipt", srv.URL, sale.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var receipt Receipt
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	require.Equal(t, "Mi Negocio POS", receipt.BusinessName)
	require.Len(t, receipt.Lines, 1)
	require.Equal(t, "Ana", receipt.CashierName)
	require.NotEmpty(t, receipt.Total)
	require.NotEmpty(t, receipt.Footer)
}

func TestDailySalesEndpointValidatesDate(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/sales/daily/%s", srv.URL, "not-a-date"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
