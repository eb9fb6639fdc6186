package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

// ErrSyncConfigNotFound is returned when a warehouse sync config row does
// not exist for the requested reference type.
var ErrSyncConfigNotFound = errors.New("warehouse sync config not found")

// ListEnabledSyncConfigs returns every enabled WarehouseSyncConfig row,
// used by the scheduler to decide what to sync on each tick.
func (r *Repository) ListEnabledSyncConfigs(ctx context.Context) ([]model.WarehouseSyncConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, reference_type, table_name, creation_key, primary_key, checkpoint, row_size, enabled, created_at, updated_at
		FROM warehouse_sync_config WHERE enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("list sync configs: %w", err)
	}
	defer rows.Close()

	var out []model.WarehouseSyncConfig
	for rows.Next() {
		var c model.WarehouseSyncConfig
		if err := rows.Scan(&c.ID, &c.ReferenceType, &c.TableName, &c.CreationKey, &c.PrimaryKey, &c.Checkpoint, &c.RowSize, &c.Enabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sync config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetSyncConfig returns a single config by reference type.
func (r *Repository) GetSyncConfig(ctx context.Context, referenceType string) (*model.WarehouseSyncConfig, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, reference_type, table_name, creation_key, primary_key, checkpoint, row_size, enabled, created_at, updated_at
		FROM warehouse_sync_config WHERE reference_type = $1`, referenceType)

	var c model.WarehouseSyncConfig
	err := row.Scan(&c.ID, &c.ReferenceType, &c.TableName, &c.CreationKey, &c.PrimaryKey, &c.Checkpoint, &c.RowSize, &c.Enabled, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSyncConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync config: %w", err)
	}
	return &c, nil
}

// UpdateCheckpointAndRowSize persists the checkpoint advance and a
// refreshed row-size estimate after a successful batch.
func (r *Repository) UpdateCheckpointAndRowSize(ctx context.Context, id, checkpoint string, rowSize int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE warehouse_sync_config SET checkpoint = $1, row_size = $2, updated_at = $3 WHERE id = $4`,
		checkpoint, rowSize, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update checkpoint: %w", err)
	}
	return nil
}

// CreateSyncRun inserts a new Queued sync run row and returns its id.
func (r *Repository) CreateSyncRun(ctx context.Context, configID string) (string, error) {
	id := ulid.Make().String()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO warehouse_sync_run (id, config_id, status, batch_size, total_inserted, log, created_at)
		VALUES ($1, $2, $3, 0, 0, '', $4)`,
		id, configID, model.SyncStatusQueued, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("create sync run: %w", err)
	}
	return id, nil
}

// UpdateSyncRun persists the terminal or in-progress state of a run.
func (r *Repository) UpdateSyncRun(ctx context.Context, run *model.SyncRun) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE warehouse_sync_run SET
			status = $1, batch_size = $2, total_inserted = $3, log = $4, started_at = $5, ended_at = $6
		WHERE id = $7`,
		run.Status, run.BatchSize, run.TotalInserted, run.Log, run.StartedAt, run.EndedAt, run.ID)
	if err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	return nil
}
