package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/colmado-pos/colmado-pos/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides business logic for catalog operations.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService constructs a catalog service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns products matching the filters. Inactive products are excluded
// unless the filters say otherwise.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Search finds active products by name, description or code.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	products, _, err := s.repo.List(ctx, ListFilters{Search: strings.TrimSpace(query), Limit: limit})
	return products, err
}

// Get retrieves a product by ID regardless of its active flag, so sale
// records referencing retired products keep resolving.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode resolves a scanned or hand-entered code over active products only.
func (s *Service) GetByCode(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Product{}, ErrNotFound
	}
	return s.repo.GetByCode(ctx, code)
}

// LowStock lists active products at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	products, _, err := s.repo.List(ctx, ListFilters{LowStockOnly: true})
	return products, err
}

// Create adds a product to the catalog.
func (s *Service) Create(ctx context.Context, req CreateProductRequest, actorID string) (Product, error) {
	if !req.Unit.Valid() {
		return Product{}, fmt.Errorf("catalog: invalid unit %q", req.Unit)
	}
	product := Product{
		ID:          uuid.New(),
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Category:    req.Category,
		Unit:        req.Unit,
		IsActive:    true,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	if err := s.repo.AddCategory(ctx, created.Category); err != nil {
		return Product{}, fmt.Errorf("register category: %w", err)
	}
	s.auditRecord(ctx, actorID, "catalog:create", created.ID, map[string]any{"code": created.Code, "name": created.Name})
	return created, nil
}

// Update applies a partial update to a product.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actorID string) (Product, error) {
	updates := make(map[string]interface{})
	if req.Code != nil {
		updates["code"] = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.MinStock != nil {
		updates["min_stock"] = *req.MinStock
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Unit != nil {
		if !req.Unit.Valid() {
			return Product{}, fmt.Errorf("catalog: invalid unit %q", *req.Unit)
		}
		updates["unit"] = *req.Unit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return Product{}, fmt.Errorf("update product: %w", err)
		}
		if req.Category != nil {
			if err := s.repo.AddCategory(ctx, *req.Category); err != nil {
				return Product{}, fmt.Errorf("register category: %w", err)
			}
		}
	}
	s.auditRecord(ctx, actorID, "catalog:update", id, map[string]any{"fields": len(updates)})
	return s.repo.Get(ctx, id)
}

// Delete retires a product. The row stays behind so historical sales keep a
// resolvable reference; it simply disappears from active-product queries.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, actorID, "catalog:delete", id, nil)
	return nil
}

// AdjustStock applies a signed delta to a product's stock counter. The
// catalog does not clamp at zero; the sales module performs the availability
// check before committing a decrement.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta float64, actorID string) (float64, error) {
	stock, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	s.auditRecord(ctx, actorID, "catalog:adjust_stock", id, map[string]any{"delta": delta, "stock": stock})
	return stock, nil
}

// Categories lists known categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

// AddCategory registers a category name, ignoring duplicates.
func (s *Service) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("catalog: category name required")
	}
	return s.repo.AddCategory(ctx, name)
}

func (s *Service) auditRecord(ctx context.Context, actorID string, action string, productID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: productID.String(),
		Meta:     meta,
	})
}
