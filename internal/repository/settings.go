package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

// ErrSettingsNotConfigured is returned when no settings row has been
// written yet (no shared secret has been bootstrapped).
var ErrSettingsNotConfigured = errors.New("settings not configured")

// GetSettings returns the single settings row.
func (r *Repository) GetSettings(ctx context.Context) (*model.Settings, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, api_key_hash, rate_limit, max_stream_length, tenants, updated_at
		FROM settings WHERE id = 1`)

	var s model.Settings
	var tenants pq.StringArray
	err := row.Scan(&s.ID, &s.APIKeyHash, &s.RateLimit, &s.MaxStreamLength, &tenants, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	s.Tenants = tenants
	return &s, nil
}

// UpsertSettings writes the singleton settings row, creating it on first
// use (rotating the shared secret calls this with the new hash).
func (r *Repository) UpsertSettings(ctx context.Context, s *model.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, api_key_hash, rate_limit, max_stream_length, tenants, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			api_key_hash = EXCLUDED.api_key_hash,
			rate_limit = EXCLUDED.rate_limit,
			max_stream_length = EXCLUDED.max_stream_length,
			tenants = EXCLUDED.tenants,
			updated_at = EXCLUDED.updated_at`,
		s.APIKeyHash, s.RateLimit, s.MaxStreamLength, pq.Array(s.Tenants), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
