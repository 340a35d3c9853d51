package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/colmado-pos/colmado-pos/internal/shared"
)

var (
	// ErrBadPassword signals a wrong credit password.
	ErrBadPassword = errors.New("customers: invalid password")
	// ErrTooManyAttempts signals that the verification window is locked.
	ErrTooManyAttempts = errors.New("customers: too many failed attempts")
)

const (
	maxVerifyAttempts = 5
	verifyWindow      = 15 * time.Minute
)

// AuditPort records customer mutations.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service manages credit customers. Password verification is rate limited per
// customer through Redis so a stolen terminal cannot brute-force credit
// accounts.
type Service struct {
	repo  Repository
	redis *redis.Client
	audit AuditPort
}

func NewService(repo Repository, rdb *redis.Client, audit AuditPort) *Service {
	return &Service{repo: repo, redis: rdb, audit: audit}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, strings.TrimSpace(search), limit, offset)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor string, req CreateCustomerRequest) (Customer, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Customer{}, fmt.Errorf("hash password: %w", err)
	}

	c := Customer{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		IDCard:       strings.TrimSpace(req.IDCard),
		PasswordHash: string(hash),
		CreditLimit:  req.CreditLimit,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Customer{}, err
	}
	s.auditRecord(ctx, actor, "customer.create", c.ID.String(), map[string]any{"email": c.Email})
	return s.repo.Get(ctx, c.ID)
}

func (s *Service) Update(ctx context.Context, actor string, id uuid.UUID, req UpdateCustomerRequest) (Customer, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.IDCard != nil {
		updates["id_card"] = strings.TrimSpace(*req.IDCard)
	}
	if req.CreditLimit != nil {
		updates["credit_limit"] = *req.CreditLimit
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return Customer{}, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return Customer{}, err
	}
	s.auditRecord(ctx, actor, "customer.update", id.String(), nil)
	return updated, nil
}

// Delete removes the customer record. Past sales are unaffected because each
// sale stores its own copy of the customer details.
func (s *Service) Delete(ctx context.Context, actor string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, actor, "customer.delete", id.String(), nil)
	return nil
}

// VerifyPassword checks the credit password. After maxVerifyAttempts failures
// inside verifyWindow the account is locked for the remainder of the window.
func (s *Service) VerifyPassword(ctx context.Context, id uuid.UUID, password string) error {
	key := verifyKey(id)

	if s.redis != nil {
		attempts, err := s.redis.Get(ctx, key).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read attempt counter: %w", err)
		}
		if attempts >= maxVerifyAttempts {
			return ErrTooManyAttempts
		}
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		if s.redis != nil {
			count, err := s.redis.Incr(ctx, key).Result()
			if err != nil {
				return fmt.Errorf("bump attempt counter: %w", err)
			}
			if count == 1 {
				s.redis.Expire(ctx, key, verifyWindow)
			}
		}
		return ErrBadPassword
	}

	if s.redis != nil {
		s.redis.Del(ctx, key)
	}
	return nil
}

// RecordPurchase folds a completed sale into the customer's history. Credit
// purchases also accrue the outstanding balance.
func (s *Service) RecordPurchase(ctx context.Context, id uuid.UUID, amount float64, onCredit bool) error {
	return s.repo.RecordPurchase(ctx, id, amount, onCredit, time.Now())
}

func (s *Service) auditRecord(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "customer",
		EntityID: entityID,
		Meta:     meta,
	})
}

func verifyKey(id uuid.UUID) string {
	return "pos:verify:" + id.String()
}
