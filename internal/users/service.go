package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/colmado-pos/colmado-pos/internal/shared"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so login responses do not leak which one failed.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrLastAdmin blocks removing or demoting the only active admin.
	ErrLastAdmin = errors.New("users: cannot remove the last active admin")
)

type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Authenticate checks credentials for an active user and stamps last_login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !u.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return User{}, err
	}
	u.LastLogin = &now
	s.auditRecord(ctx, u.ID.String(), "user.login", u.ID.String(), nil)
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, strings.ToLower(username))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor string, req CreateUserRequest) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.New(),
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	s.auditRecord(ctx, actor, "user.create", u.ID.String(), map[string]any{"role": string(u.Role)})
	return s.repo.Get(ctx, u.ID)
}

func (s *Service) Update(ctx context.Context, actor string, id uuid.UUID, req UpdateUserRequest) (User, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	demoting := req.Role != nil && *req.Role != RoleAdmin && current.Role == RoleAdmin
	deactivating := req.IsActive != nil && !*req.IsActive && current.IsActive && current.Role == RoleAdmin
	if demoting || deactivating {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return User{}, err
		}
	}

	updates := map[string]any{}
	if req.Username != nil {
		updates["username"] = strings.ToLower(strings.TrimSpace(*req.Username))
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		updates["role"] = string(*req.Role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return User{}, err
	}
	s.auditRecord(ctx, actor, "user.update", id.String(), nil)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor string, id uuid.UUID) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Role == RoleAdmin && current.IsActive {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, actor, "user.delete", id.String(), nil)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.repo.Update(ctx, id, map[string]any{"password_hash": string(hash)}); err != nil {
		return err
	}
	s.auditRecord(ctx, id.String(), "user.change_password", id.String(), nil)
	return nil
}

func (s *Service) ensureNotLastAdmin(ctx context.Context) error {
	count, err := s.repo.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) auditRecord(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	})
}
