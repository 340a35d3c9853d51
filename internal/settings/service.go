package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colmado-pos/colmado-pos/internal/shared"
)

// AuditPort records configuration changes.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service serves and mutates the settings document. Reads fall back to
// Defaults when nothing has been saved yet.
type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) Get(ctx context.Context) (POSSettings, error) {
	current, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return POSSettings{}, err
	}
	return current, nil
}

// TaxRate reports the configured rate for the sales engine.
func (s *Service) TaxRate(ctx context.Context) (float64, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return current.System.TaxRate, nil
}

// LowStockThreshold reports the configured alert threshold.
func (s *Service) LowStockThreshold(ctx context.Context) (float64, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return current.System.LowStockThreshold, nil
}

func (s *Service) UpdateBusiness(ctx context.Context, actor string, req UpdateBusinessRequest) (POSSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return POSSettings{}, err
	}

	b := &current.Business
	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Address != nil {
		b.Address = *req.Address
	}
	if req.Phone != nil {
		b.Phone = *req.Phone
	}
	if req.TaxID != nil {
		b.TaxID = *req.TaxID
	}
	if req.Email != nil {
		b.Email = *req.Email
	}
	if req.Website != nil {
		b.Website = *req.Website
	}
	if req.Logo != nil {
		b.Logo = *req.Logo
	}

	if err := s.repo.Save(ctx, current); err != nil {
		return POSSettings{}, err
	}
	s.auditRecord(ctx, actor, "settings.business.update", map[string]any{"name": b.Name})
	return current, nil
}

func (s *Service) UpdateSystem(ctx context.Context, actor string, req UpdateSystemRequest) (POSSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return POSSettings{}, err
	}

	sys := &current.System
	if req.Currency != nil {
		sys.Currency = *req.Currency
	}
	if req.TaxRate != nil {
		sys.TaxRate = *req.TaxRate
	}
	if req.ReceiptFooter != nil {
		sys.ReceiptFooter = *req.ReceiptFooter
	}
	if req.AutoBackup != nil {
		sys.AutoBackup = *req.AutoBackup
	}
	if req.SoundEnabled != nil {
		sys.SoundEnabled = *req.SoundEnabled
	}
	if req.KeyboardShortcuts != nil {
		sys.KeyboardShortcuts = *req.KeyboardShortcuts
	}
	if req.BarcodeEnabled != nil {
		sys.BarcodeEnabled = *req.BarcodeEnabled
	}
	if req.LowStockThreshold != nil {
		sys.LowStockThreshold = *req.LowStockThreshold
	}

	if err := s.repo.Save(ctx, current); err != nil {
		return POSSettings{}, err
	}
	s.auditRecord(ctx, actor, "settings.system.update", map[string]any{"tax_rate": sys.TaxRate})
	return current, nil
}

// Reset restores the defaults, discarding every stored value.
func (s *Service) Reset(ctx context.Context, actor string) (POSSettings, error) {
	defaults := Defaults()
	if err := s.repo.Save(ctx, defaults); err != nil {
		return POSSettings{}, err
	}
	s.auditRecord(ctx, actor, "settings.reset", nil)
	return defaults, nil
}

// Export serializes the current settings for backup.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(current, "", "  ")
}

// Import replaces the stored settings with a previously exported document.
func (s *Service) Import(ctx context.Context, actor string, payload []byte) (POSSettings, error) {
	var incoming POSSettings
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return POSSettings{}, fmt.Errorf("settings: invalid import payload: %w", err)
	}
	if incoming.System.TaxRate < 0 || incoming.System.TaxRate > 1 {
		return POSSettings{}, errors.New("settings: tax rate out of range")
	}
	if err := s.repo.Save(ctx, incoming); err != nil {
		return POSSettings{}, err
	}
	s.auditRecord(ctx, actor, "settings.import", nil)
	return incoming, nil
}

func (s *Service) auditRecord(ctx context.Context, actor, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "settings",
		EntityID: "1",
		Meta:     meta,
	})
}
