package warehouse

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

type fakeRepo struct {
	mu         sync.Mutex
	runs       map[string]*model.SyncRun
	checkpoint string
	rowSize    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{runs: map[string]*model.SyncRun{}}
}

func (r *fakeRepo) CreateSyncRun(ctx context.Context, configID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := configID + "-run"
	r.runs[id] = &model.SyncRun{ID: id, ConfigID: configID, Status: model.SyncStatusQueued}
	return id, nil
}

func (r *fakeRepo) UpdateSyncRun(ctx context.Context, run *model.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateCheckpointAndRowSize(ctx context.Context, id, checkpoint string, rowSize int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoint = checkpoint
	r.rowSize = rowSize
	return nil
}

// fakeSource serves a fixed set of rows, keyed ascending by "id", ignoring
// anything at or before the given checkpoint.
type fakeSource struct {
	rows []Row
}

func (s *fakeSource) Fetch(ctx context.Context, after string, limit int64) ([]Row, error) {
	var out []Row
	for _, r := range s.rows {
		if after != "" && r["id"] <= after {
			continue
		}
		out = append(out, r)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSource) Sample(ctx context.Context, n int) ([]Row, error) {
	return s.Fetch(ctx, "", int64(n))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncer_DrainsAndAdvancesCheckpoint(t *testing.T) {
	target := newTestTarget(t)
	repo := newFakeRepo()
	syncer := NewSyncer(target, repo, t.TempDir(), testLogger())

	source := &fakeSource{rows: []Row{
		{"id": "1", "site": "a"},
		{"id": "2", "site": "b"},
		{"id": "3", "site": "c"},
	}}
	cfg := &model.WarehouseSyncConfig{ID: "cfg1", TableName: "events", CreationKey: "id", PrimaryKey: "id", RowSize: 0}

	run, err := syncer.Run(context.Background(), cfg, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != model.SyncStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", run.Status, run.Log)
	}
	if run.TotalInserted != 3 {
		t.Fatalf("expected 3 inserted, got %d", run.TotalInserted)
	}
	if repo.checkpoint != "3" {
		t.Fatalf("expected checkpoint advanced to 3, got %q", repo.checkpoint)
	}
}

func TestSyncer_RerunIsIdempotent(t *testing.T) {
	target := newTestTarget(t)
	repo := newFakeRepo()
	syncer := NewSyncer(target, repo, t.TempDir(), testLogger())

	source := &fakeSource{rows: []Row{
		{"id": "1", "site": "a"},
		{"id": "2", "site": "b"},
	}}
	cfg := &model.WarehouseSyncConfig{ID: "cfg1", TableName: "events", CreationKey: "id", PrimaryKey: "id"}

	if _, err := syncer.Run(context.Background(), cfg, source); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cfg.Checkpoint = repo.checkpoint
	run, err := syncer.Run(context.Background(), cfg, source)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if run.Status != model.SyncStatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	if run.TotalInserted != 0 {
		t.Fatalf("expected rerun from checkpoint to insert nothing new, got %d", run.TotalInserted)
	}
}

func TestSyncer_SkipsOnLockContention(t *testing.T) {
	target := newTestTarget(t)
	repo := newFakeRepo()
	lockDir := t.TempDir()
	syncer := NewSyncer(target, repo, lockDir, testLogger()).WithLockTimeout(300 * time.Millisecond)

	cfg := &model.WarehouseSyncConfig{ID: "cfg1", TableName: "events", CreationKey: "id", PrimaryKey: "id"}

	holder := flock.New(filepath.Join(lockDir, "duckdb_sync_events.lock"))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to acquire holder lock: %v", err)
	}
	defer holder.Unlock()

	source := &fakeSource{rows: []Row{{"id": "1", "site": "a"}}}
	run, err := syncer.Run(context.Background(), cfg, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != model.SyncStatusSkipped {
		t.Fatalf("expected skipped due to lock contention, got %s", run.Status)
	}
}
