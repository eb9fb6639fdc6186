package warehouse

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func newTestTarget(t *testing.T) *Target {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	target, err := OpenTarget(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	t.Cleanup(func() { target.Close() })
	return target
}

func TestEnsureTable_CreatesFromSampleOnce(t *testing.T) {
	target := newTestTarget(t)
	ctx := context.Background()

	created, err := target.EnsureTable(ctx, "events", Row{"id": "1", "site": "a"})
	if err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if !created {
		t.Fatal("expected table to be newly created")
	}

	createdAgain, err := target.EnsureTable(ctx, "events", Row{"id": "2", "site": "b"})
	if err != nil {
		t.Fatalf("ensure table second call: %v", err)
	}
	if createdAgain {
		t.Fatal("expected second EnsureTable call to be a no-op")
	}
}

func TestInsertNew_AntiJoinSkipsExistingPrimaryKey(t *testing.T) {
	target := newTestTarget(t)
	ctx := context.Background()

	rows := []Row{
		{"id": "1", "site": "a"},
		{"id": "2", "site": "b"},
	}
	if _, err := target.EnsureTable(ctx, "events", rows[0]); err != nil {
		t.Fatalf("ensure table: %v", err)
	}

	n, err := target.InsertNew(ctx, "events", "id", rows)
	if err != nil {
		t.Fatalf("insert new: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	// Re-insert the same batch plus one new row: only the new row should land.
	n, err = target.InsertNew(ctx, "events", "id", append(rows, Row{"id": "3", "site": "c"}))
	if err != nil {
		t.Fatalf("insert new (repeat): %v", err)
	}
	if n != 1 {
		t.Fatalf("expected idempotent insert to add exactly 1 row, got %d", n)
	}
}

func TestInsertNew_EmptyBatchIsNoop(t *testing.T) {
	target := newTestTarget(t)
	n, err := target.InsertNew(context.Background(), "events", "id", nil)
	if err != nil {
		t.Fatalf("insert new: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
