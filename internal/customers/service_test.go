package customers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	customers map[uuid.UUID]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[uuid.UUID]Customer{}}
}

func (m *memoryRepo) List(_ context.Context, search string, _, _ int) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (Customer, error) {
	for _, c := range m.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, c Customer) error {
	for _, existing := range m.customers {
		if strings.EqualFold(existing.Email, c.Email) || existing.IDCard == c.IDCard {
			return ErrDuplicate
		}
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.customers[c.ID] = c
	return nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "name":
			c.Name = val.(string)
		case "email":
			c.Email = val.(string)
		case "phone":
			c.Phone = val.(string)
		case "address":
			c.Address = val.(string)
		case "id_card":
			c.IDCard = val.(string)
		case "credit_limit":
			c.CreditLimit = val.(float64)
		case "password_hash":
			c.PasswordHash = val.(string)
		}
	}
	c.UpdatedAt = time.Now()
	m.customers[id] = c
	return c, nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.customers[id]; !ok {
		return ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *memoryRepo) RecordPurchase(_ context.Context, id uuid.UUID, amount float64, onCredit bool, at time.Time) error {
	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.TotalSpent += amount
	c.PurchaseCount++
	if onCredit {
		c.Balance += amount
	}
	c.LastPurchase = &at
	m.customers[id] = c
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := newMemoryRepo()
	return NewService(repo, rdb, nil), repo, mr
}

func createCustomer(t *testing.T, svc *Service, email, password string) Customer {
	t.Helper()
	c, err := svc.Create(context.Background(), "admin", CreateCustomerRequest{
		Name:        "Juan Pérez",
		Email:       email,
		Phone:       "809-555-0101",
		IDCard:      "001-" + email,
		Password:    password,
		CreditLimit: 5000,
	})
	require.NoError(t, err)
	return c
}

func TestCreateCustomerHashesPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)

	c := createCustomer(t, svc, "juan@example.com", "secreto")
	stored := repo.customers[c.ID]
	require.NotEqual(t, "secreto", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreto")))
}

func TestCreateCustomerRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	createCustomer(t, svc, "juan@example.com", "secreto")
	_, err := svc.Create(context.Background(), "admin", CreateCustomerRequest{
		Name:     "Otro Juan",
		Email:    "JUAN@example.com",
		Phone:    "809-555-0102",
		IDCard:   "otra-cedula",
		Password: "clave",
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestVerifyPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")

	require.NoError(t, svc.VerifyPassword(context.Background(), c.ID, "secreto"))
	require.ErrorIs(t, svc.VerifyPassword(context.Background(), c.ID, "mala"), ErrBadPassword)
}

func TestVerifyPasswordLocksAfterRepeatedFailures(t *testing.T) {
	svc, _, mr := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")
	ctx := context.Background()

	for i := 0; i < maxVerifyAttempts; i++ {
		require.ErrorIs(t, svc.VerifyPassword(ctx, c.ID, "mala"), ErrBadPassword)
	}

	// locked even with the right password
	require.ErrorIs(t, svc.VerifyPassword(ctx, c.ID, "secreto"), ErrTooManyAttempts)

	mr.FastForward(verifyWindow + time.Second)
	require.NoError(t, svc.VerifyPassword(ctx, c.ID, "secreto"))
}

func TestVerifyPasswordSuccessResetsCounter(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")
	ctx := context.Background()

	for i := 0; i < maxVerifyAttempts-1; i++ {
		require.ErrorIs(t, svc.VerifyPassword(ctx, c.ID, "mala"), ErrBadPassword)
	}
	require.NoError(t, svc.VerifyPassword(ctx, c.ID, "secreto"))

	// the window restarts from zero after a success
	for i := 0; i < maxVerifyAttempts-1; i++ {
		require.ErrorIs(t, svc.VerifyPassword(ctx, c.ID, "mala"), ErrBadPassword)
	}
	require.NoError(t, svc.VerifyPassword(ctx, c.ID, "secreto"))
}

func TestRecordPurchaseUpdatesHistory(t *testing.T) {
	svc, repo, _ := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")

	require.NoError(t, svc.RecordPurchase(context.Background(), c.ID, 250.50, false))
	require.NoError(t, svc.RecordPurchase(context.Background(), c.ID, 100, false))

	stored := repo.customers[c.ID]
	require.InDelta(t, 350.50, stored.TotalSpent, 1e-9)
	require.Equal(t, 2, stored.PurchaseCount)
	require.NotNil(t, stored.LastPurchase)
}

func TestRecordPurchaseAccruesBalanceOnCredit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")

	require.NoError(t, svc.RecordPurchase(context.Background(), c.ID, 59, true))
	require.NoError(t, svc.RecordPurchase(context.Background(), c.ID, 41, false))

	stored := repo.customers[c.ID]
	require.InDelta(t, 100, stored.TotalSpent, 1e-9)
	require.InDelta(t, 59, stored.Balance, 1e-9)
}

func TestDeleteRemovesCustomer(t *testing.T) {
	svc, repo, _ := newTestService(t)
	c := createCustomer(t, svc, "juan@example.com", "secreto")

	require.NoError(t, svc.Delete(context.Background(), "admin", c.ID))
	require.Empty(t, repo.customers)
	require.ErrorIs(t, svc.Delete(context.Background(), "admin", c.ID), ErrNotFound)
}
