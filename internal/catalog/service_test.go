package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products   map[uuid.UUID]Product
	categories map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[uuid.UUID]Product), categories: make(map[string]bool)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var result []Product
	for _, p := range r.products {
		if !filters.IncludeInactive && !p.IsActive {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if filters.LowStockOnly && p.Stock > p.MinStock {
			continue
		}
		if filters.Search != "" {
			q := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(p.Name), q) &&
				!strings.Contains(strings.ToLower(p.Description), q) &&
				!strings.Contains(strings.ToLower(p.Code), q) {
				continue
			}
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (Product, error) {
	for _, p := range r.products {
		if p.Code == code && p.IsActive {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, existing := range r.products {
		if existing.Code == product.Code {
			return Product{}, ErrDuplicateCode
		}
	}
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := updates["price"]; ok {
		p.Price = v.(float64)
	}
	if v, ok := updates["stock"]; ok {
		p.Stock = v.(float64)
	}
	if v, ok := updates["min_stock"]; ok {
		p.MinStock = v.(float64)
	}
	if v, ok := updates["category"]; ok {
		p.Category = v.(string)
	}
	if v, ok := updates["is_active"]; ok {
		p.IsActive = v.(bool)
	}
	r.products[id] = p
	return nil
}

func (r *memoryRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memoryRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	p, ok := r.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Stock += delta
	r.products[id] = p
	return p.Stock, nil
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]string, error) {
	var names []string
	for name := range r.categories {
		names = append(names, name)
	}
	return names, nil
}

func (r *memoryRepo) AddCategory(ctx context.Context, name string) error {
	r.categories[name] = true
	return nil
}

func TestCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Code:     "001",
		Name:     "Coca Cola 600ml",
		Price:    25.0,
		Stock:    50,
		MinStock: 10,
		Category: "Bebidas",
		Unit:     UnitPiece,
	}, "tester")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.True(t, created.IsActive)
	require.True(t, repo.categories["Bebidas"])

	_, err = svc.Create(ctx, CreateProductRequest{
		Code:     "001",
		Name:     "Duplicate",
		Category: "Bebidas",
		Unit:     UnitPiece,
	}, "tester")
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateProductRejectsUnknownUnit(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateProductRequest{
		Code:     "002",
		Name:     "Misconfigured",
		Category: "Otros",
		Unit:     Unit("dozen"),
	}, "tester")
	require.Error(t, err)
}

func TestSoftDeleteHidesProductFromActiveQueries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Code: "003", Name: "Arroz", Category: "Granos", Unit: UnitBulk, Stock: 100, MinStock: 20, Price: 18.5,
	}, "tester")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, "tester"))

	_, err = svc.GetByCode(ctx, "003")
	require.ErrorIs(t, err, ErrNotFound)

	// The record itself stays resolvable for historical references.
	p, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, p.IsActive)

	products, _, err := svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestAdjustStockAppliesSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Code: "004", Name: "Pan Blanco", Category: "Panadería", Unit: UnitWeight, Stock: 15, MinStock: 5, Price: 35,
	}, "tester")
	require.NoError(t, err)

	stock, err := svc.AdjustStock(ctx, created.ID, -2.5, "tester")
	require.NoError(t, err)
	require.InDelta(t, 12.5, stock, 1e-9)

	stock, err = svc.AdjustStock(ctx, created.ID, 10, "tester")
	require.NoError(t, err)
	require.InDelta(t, 22.5, stock, 1e-9)
}

func TestLowStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{
		Code: "005", Name: "Leche", Category: "Lácteos", Unit: UnitPiece, Stock: 3, MinStock: 10, Price: 60,
	}, "tester")
	require.NoError(t, err)
	healthy, err := svc.Create(ctx, CreateProductRequest{
		Code: "006", Name: "Queso", Category: "Lácteos", Unit: UnitPiece, Stock: 30, MinStock: 10, Price: 120,
	}, "tester")
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Leche", low[0].Name)

	// Retired products drop out of the alerting query too.
	require.NoError(t, svc.Delete(ctx, healthy.ID, "tester"))
	low, err = svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
}
