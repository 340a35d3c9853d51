package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colmado-pos/colmado-pos/internal/shared"
)

type memoryRepo struct {
	stored *POSSettings
}

func (m *memoryRepo) Load(_ context.Context) (POSSettings, error) {
	if m.stored == nil {
		return POSSettings{}, ErrNotFound
	}
	return *m.stored, nil
}

func (m *memoryRepo) Save(_ context.Context, s POSSettings) error {
	m.stored = &s
	return nil
}

type auditFake struct {
	entries []shared.AuditLog
}

func (a *auditFake) Record(_ context.Context, entry shared.AuditLog) error {
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	a.entries = append(a.entries, entry)
	return nil
}

func TestMutationsEmitCompleteAuditEntries(t *testing.T) {
	audit := &auditFake{}
	svc := NewService(&memoryRepo{}, audit)
	ctx := context.Background()

	rate := 0.16
	_, err := svc.UpdateSystem(ctx, "admin", UpdateSystemRequest{TaxRate: &rate})
	require.NoError(t, err)
	_, err = svc.Reset(ctx, "admin")
	require.NoError(t, err)

	require.Len(t, audit.entries, 2)
	for _, entry := range audit.entries {
		require.Equal(t, "settings", entry.Entity)
		require.Equal(t, "1", entry.EntityID)
		require.Equal(t, "admin", entry.ActorID)
	}
	require.Equal(t, "settings.system.update", audit.entries[0].Action)
	require.Equal(t, "settings.reset", audit.entries[1].Action)
}

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "DOP", got.System.Currency)
	require.InDelta(t, 0.18, got.System.TaxRate, 1e-9)
	require.Equal(t, float64(10), got.System.LowStockThreshold)
	require.Equal(t, "Mi Negocio POS", got.Business.Name)
}

func TestUpdateSystemMergesPartialFields(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	rate := 0.16
	updated, err := svc.UpdateSystem(context.Background(), "admin", UpdateSystemRequest{TaxRate: &rate})
	require.NoError(t, err)
	require.InDelta(t, 0.16, updated.System.TaxRate, 1e-9)
	require.Equal(t, "DOP", updated.System.Currency)
	require.True(t, updated.System.AutoBackup)

	got, err := svc.TaxRate(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 0.16, got, 1e-9)
}

func TestUpdateBusinessKeepsUntouchedFields(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	name := "Colmado El Primo"
	updated, err := svc.UpdateBusiness(context.Background(), "admin", UpdateBusinessRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Colmado El Primo", updated.Business.Name)
	require.Equal(t, "(809) 123-4567", updated.Business.Phone)
}

func TestResetRestoresDefaults(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	rate := 0.0
	_, err := svc.UpdateSystem(context.Background(), "admin", UpdateSystemRequest{TaxRate: &rate})
	require.NoError(t, err)

	restored, err := svc.Reset(context.Background(), "admin")
	require.NoError(t, err)
	require.InDelta(t, 0.18, restored.System.TaxRate, 1e-9)
}

func TestImportRoundTripsExport(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	footer := "Vuelva pronto"
	_, err := svc.UpdateSystem(context.Background(), "admin", UpdateSystemRequest{ReceiptFooter: &footer})
	require.NoError(t, err)

	payload, err := svc.Export(context.Background())
	require.NoError(t, err)

	fresh := NewService(&memoryRepo{}, nil)
	imported, err := fresh.Import(context.Background(), "admin", payload)
	require.NoError(t, err)
	require.Equal(t, "Vuelva pronto", imported.System.ReceiptFooter)
}

func TestImportRejectsOutOfRangeTaxRate(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	_, err := svc.Import(context.Background(), "admin", []byte(`{"system":{"tax_rate":2.5}}`))
	require.Error(t, err)
}
