package hotstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hot.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(path, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return store
}

func TestStoreBatch_EmptyIsNoop(t *testing.T) {
	store := newTestStore(t)
	if err := store.StoreBatch(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if got := store.RowCountTotal(context.Background()); got != 0 {
		t.Errorf("expected 0 rows, got %d", got)
	}
}

func TestStoreBatch_InsertsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rows := []model.HotEventRow{
		{ID: "1-0", Site: "s1", Name: "login", Timestamp: time.Now().UTC(), Data: "{}"},
		{ID: "2-0", Site: "s1", Name: "logout", Timestamp: time.Now().UTC(), Data: "{}"},
	}
	if err := store.StoreBatch(ctx, rows); err != nil {
		t.Fatalf("store batch: %v", err)
	}
	if got := store.RowCountTotal(ctx); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}

	// Re-storing the same ids (redelivery) must not duplicate rows.
	if err := store.StoreBatch(ctx, rows); err != nil {
		t.Fatalf("store batch again: %v", err)
	}
	if got := store.RowCountTotal(ctx); got != 2 {
		t.Fatalf("expected 2 rows after redelivery, got %d", got)
	}
}

func TestCountSince(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := time.Now().UTC().Add(-time.Hour)
	recent := time.Now().UTC()
	rows := []model.HotEventRow{
		{ID: "1-0", Site: "s1", Name: "a", Timestamp: old, Data: "{}"},
		{ID: "2-0", Site: "s1", Name: "b", Timestamp: recent, Data: "{}"},
	}
	if err := store.StoreBatch(ctx, rows); err != nil {
		t.Fatalf("store batch: %v", err)
	}

	got := store.CountSince(ctx, time.Now().UTC().Add(-10*time.Minute))
	if got != 1 {
		t.Errorf("expected 1 recent row, got %d", got)
	}
}

func TestSizeBytes_NonZeroAfterWrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.StoreBatch(ctx, []model.HotEventRow{
		{ID: "1-0", Site: "s1", Name: "a", Timestamp: time.Now().UTC(), Data: "{}"},
	})
	if store.SizeBytes() <= 0 {
		t.Error("expected non-zero file size after write")
	}
}
