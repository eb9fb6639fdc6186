// Package warehouse implements the Warehouse Sync (C5) drain loop: batch
// estimation, cross-process file locking, anti-join de-duplication, and
// checkpoint advance against an embedded warehouse store.
//
// Like internal/hotstore, the warehouse target is backed by SQLite
// (mattn/go-sqlite3): there is no embeddable Go DuckDB/ducklake driver, and
// SQLite gives the same single-file transactional semantics the anti-join
// drain loop depends on.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Row is a single source record keyed by column name. Values are
// stringified before storage; the warehouse target treats every column
// as text, mirroring the "nullable columns defaulted to empty strings"
// schema-inference rule.
type Row map[string]string

// Target wraps the warehouse's single SQLite file.
type Target struct {
	db      *sql.DB
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	schemas map[string][]string
}

// OpenTarget opens (creating if absent) the warehouse file at path.
func OpenTarget(path string, logger *slog.Logger) (*Target, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return &Target{db: db, path: path, logger: logger.With("component", "warehouse.target"), schemas: map[string][]string{}}, nil
}

func (t *Target) Close() error { return t.db.Close() }

// EnsureTable creates the table if absent, deriving its schema from a
// one-row sample. Returns whether the table was newly created.
func (t *Target) EnsureTable(ctx context.Context, tableName string, sample Row) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cols, ok := t.schemas[tableName]; ok && len(cols) > 0 {
		return false, nil
	}

	var exists int
	err := t.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}

	if exists > 0 {
		cols, err := t.loadColumns(ctx, tableName)
		if err != nil {
			return false, err
		}
		t.schemas[tableName] = cols
		return false, nil
	}

	cols := make([]string, 0, len(sample))
	for k := range sample {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if len(cols) == 0 {
		return false, fmt.Errorf("cannot create table %s: empty sample", tableName)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), columnDDL(cols))
	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return false, fmt.Errorf("create table %s: %w", tableName, err)
	}
	t.schemas[tableName] = cols
	return true, nil
}

func columnDDL(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(c) + " TEXT"
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func quoteIdent(s string) string { return `"` + s + `"` }

func (t *Target) loadColumns(ctx context.Context, tableName string) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", tableName, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// InsertNew inserts only the rows in the batch whose primaryKey value is
// not already present in the table (anti-join), returning the count
// actually inserted.
func (t *Target) InsertNew(ctx context.Context, tableName, primaryKey string, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	t.mu.Lock()
	cols := t.schemas[tableName]
	t.mu.Unlock()
	if len(cols) == 0 {
		return 0, fmt.Errorf("insert into %s: schema not established", tableName)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	colList := ""
	placeholders := ""
	for i, c := range cols {
		if i > 0 {
			colList += ", "
			placeholders += ", "
		}
		colList += quoteIdent(c)
		placeholders += "?"
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s WHERE NOT EXISTS (SELECT 1 FROM %s WHERE %s = ?)`,
		quoteIdent(tableName), colList, placeholders, quoteIdent(tableName), quoteIdent(primaryKey),
	)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare anti-join insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		args := make([]interface{}, 0, len(cols)+1)
		for _, c := range cols {
			args = append(args, row[c])
		}
		args = append(args, row[primaryKey])

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("anti-join insert row: %w", err)
		}
		affected, _ := res.RowsAffected()
		inserted += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
