package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/enxergar/outreach/internal/domain/repository"
)

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const qUpsertSetting = `
INSERT INTO system_settings (key, value, description, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = now();`

func (r *SettingsRepository) Upsert(ctx context.Context, key string, value any, description string) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("settings marshal %s: %w", key, err)
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qUpsertSetting, key, b, description); err != nil {
		return fmt.Errorf("settings upsert %s: %w", key, err)
	}
	return nil
}

var _ repository.SettingsRepository = (*SettingsRepository)(nil)
