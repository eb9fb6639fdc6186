package model

import "time"

// Settings is the single operator-editable control-plane row, analogous to
// the original system's global settings singleton. APIKeyHash is an
// argon2id hash of the one shared ingest secret.
type Settings struct {
	ID              int64     `json:"id"`
	APIKeyHash      string    `json:"-"`
	RateLimit       int64     `json:"rate_limit"`       // requests per hour per remote address
	MaxStreamLength int64     `json:"max_stream_length"`
	Tenants         []string  `json:"tenants"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WarehouseSyncConfig is a durable, per-reference-type sync configuration
// (one row per table synced to the warehouse).
type WarehouseSyncConfig struct {
	ID            string    `json:"id"`
	ReferenceType string    `json:"reference_type"`
	TableName     string    `json:"table_name"`
	CreationKey   string    `json:"creation_key"`
	PrimaryKey    string    `json:"primary_key"`
	Checkpoint    string    `json:"checkpoint"`
	RowSize       int64     `json:"row_size"` // estimated bytes/row, 0 if unknown
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SyncRunStatus enumerates the lifecycle of a single warehouse sync
// invocation.
type SyncRunStatus string

const (
	SyncStatusQueued     SyncRunStatus = "queued"
	SyncStatusInProgress SyncRunStatus = "in_progress"
	SyncStatusCompleted  SyncRunStatus = "completed"
	SyncStatusFailed     SyncRunStatus = "failed"
	SyncStatusSkipped    SyncRunStatus = "skipped"
)

// SyncRun records a single invocation of the warehouse sync loop against a
// WarehouseSyncConfig.
type SyncRun struct {
	ID             string        `json:"id"`
	ConfigID       string        `json:"config_id"`
	Status         SyncRunStatus `json:"status"`
	BatchSize      int64         `json:"batch_size"`
	TotalInserted  int64         `json:"total_inserted"`
	Log            string        `json:"log"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
