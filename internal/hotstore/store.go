// Package hotstore implements the embedded, single-file, transactional
// store for accepted events.
//
// Columnar/analytical engines such as DuckDB have no embeddable Go driver,
// so this store is backed by SQLite (mattn/go-sqlite3) instead: the nearest
// real, fetchable, single-file, transactional store available. The
// open/ensure-table/store-batch/size-bytes contract is unaffected by the
// substitution.
package hotstore

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/pulseerr"
)

// Store wraps a single SQLite file holding the `event` table.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if absent) the hot store file at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pulseerr.Storage("open hot store", err)
	}
	db.SetMaxOpenConns(1) // single embedded file; the warehouse sync job owns cross-process writes via a file lock
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, pulseerr.Storage("ping hot store", err)
	}
	return &Store{db: db, path: path, logger: logger.With("component", "hotstore")}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureTable creates the event table if it does not already exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS event (
	id TEXT PRIMARY KEY,
	site TEXT NOT NULL,
	name TEXT NOT NULL,
	app TEXT,
	app_version TEXT,
	frappe_version TEXT,
	timestamp TIMESTAMP NOT NULL,
	data TEXT,
	stored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return pulseerr.Storage("ensure event table", err)
	}
	return nil
}

// StoreBatch inserts rows inside a single transaction, rolling back on any
// failure. Empty input is a no-op. Rows are inserted idempotently keyed by
// id so redelivery of an already-stored entry never duplicates a row.
func (s *Store) StoreBatch(ctx context.Context, rows []model.HotEventRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pulseerr.Storage("begin transaction", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO event (id, site, name, app, app_version, frappe_version, timestamp, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return pulseerr.Storage("prepare insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Site, row.Name, row.App, row.AppVersion, row.FrappeVersion, row.Timestamp, row.Data); err != nil {
			tx.Rollback()
			return pulseerr.Storage("insert event row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pulseerr.Storage("commit transaction", err)
	}
	return nil
}

// CountSince returns the number of rows with timestamp >= since, or 0 on
// failure (introspection never raises).
func (s *Store) CountSince(ctx context.Context, since time.Time) int64 {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event WHERE timestamp >= ?", since).Scan(&count)
	if err != nil {
		s.logger.Warn("count since failed", "error", err)
		return 0
	}
	return count
}

// SizeBytes returns the best-effort file size of the store, or 0 on error.
func (s *Store) SizeBytes() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		s.logger.Warn("stat hot store failed", "error", err)
		return 0
	}
	return info.Size()
}

// TimestampSample is one (id, timestamp) pair used by introspection to
// compute processing lag against the receipt time embedded in id.
type TimestampSample struct {
	ID        string
	Timestamp time.Time
}

// SampleSince returns up to limit (id, timestamp) pairs for rows stored
// since the given time, or an empty slice on failure.
func (s *Store) SampleSince(ctx context.Context, since time.Time, limit int) []TimestampSample {
	rows, err := s.db.QueryContext(ctx, "SELECT id, timestamp FROM event WHERE timestamp >= ? LIMIT ?", since, limit)
	if err != nil {
		s.logger.Warn("sample since failed", "error", err)
		return nil
	}
	defer rows.Close()

	var out []TimestampSample
	for rows.Next() {
		var sample TimestampSample
		if err := rows.Scan(&sample.ID, &sample.Timestamp); err != nil {
			s.logger.Warn("scan sample row failed", "error", err)
			continue
		}
		out = append(out, sample)
	}
	return out
}

// RowCountTotal returns the total row count, or 0 on failure.
func (s *Store) RowCountTotal(ctx context.Context) int64 {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event").Scan(&count); err != nil {
		s.logger.Warn("row count failed", "error", err)
		return 0
	}
	return count
}

// FetchAfter returns up to limit rows with id greater than after (empty
// string selects from the beginning), ordered ascending by id. Used by the
// warehouse sync as the row-store source.
func (s *Store) FetchAfter(ctx context.Context, after string, limit int64) ([]model.HotEventRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, site, name, app, app_version, frappe_version, timestamp, data FROM event
WHERE id > ? ORDER BY id ASC LIMIT ?`, after, limit)
	if err != nil {
		return nil, pulseerr.Storage("fetch rows after checkpoint", err)
	}
	defer rows.Close()

	var out []model.HotEventRow
	for rows.Next() {
		var row model.HotEventRow
		var app, appVersion, frappeVersion, data sql.NullString
		if err := rows.Scan(&row.ID, &row.Site, &row.Name, &app, &appVersion, &frappeVersion, &row.Timestamp, &data); err != nil {
			return nil, pulseerr.Storage("scan fetched row", err)
		}
		row.App = app.String
		row.AppVersion = appVersion.String
		row.FrappeVersion = frappeVersion.String
		row.Data = data.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// DB exposes the underlying *sql.DB for components that need direct SQL
// access (introspection lag sampling, warehouse source queries).
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }
