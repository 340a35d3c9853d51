package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no settings row has been persisted yet.
var ErrNotFound = errors.New("settings: not found")

// Repository stores the single settings document.
type Repository interface {
	Load(ctx context.Context) (POSSettings, error)
	Save(ctx context.Context, s POSSettings) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Load(ctx context.Context) (POSSettings, error) {
	var (
		business []byte
		system   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT business, system FROM settings WHERE id = 1`,
	).Scan(&business, &system)
	if errors.Is(err, pgx.ErrNoRows) {
		return POSSettings{}, ErrNotFound
	}
	if err != nil {
		return POSSettings{}, fmt.Errorf("load settings: %w", err)
	}

	var s POSSettings
	if err := json.Unmarshal(business, &s.Business); err != nil {
		return POSSettings{}, fmt.Errorf("decode business settings: %w", err)
	}
	if err := json.Unmarshal(system, &s.System); err != nil {
		return POSSettings{}, fmt.Errorf("decode system settings: %w", err)
	}
	return s, nil
}

func (r *pgRepository) Save(ctx context.Context, s POSSettings) error {
	business, err := json.Marshal(s.Business)
	if err != nil {
		return fmt.Errorf("encode business settings: %w", err)
	}
	system, err := json.Marshal(s.System)
	if err != nil {
		return fmt.Errorf("encode system settings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO settings (id, business, system, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET business = EXCLUDED.business,
		    system = EXCLUDED.system,
		    updated_at = NOW()`,
		business, system,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
