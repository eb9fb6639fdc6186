package introspection

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nextchamp-saqib/pulse/internal/hotstore"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

func newTestStats(t *testing.T) (*Stats, *streamlog.Log, *hotstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := streamlog.New(client, "acme", "pulse:events", "event_processors", "worker-a", 1000, logger)
	if err := log.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("ensure group: %v", err)
	}

	store, err := hotstore.Open(filepath.Join(t.TempDir(), "hot.db"), logger)
	if err != nil {
		t.Fatalf("open hot store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureTable(context.Background()); err != nil {
		t.Fatalf("ensure table: %v", err)
	}

	return New(log, store), log, store
}

func TestCollect_ZeroStateIsAllZero(t *testing.T) {
	stats, _, _ := newTestStats(t)
	snap := stats.Collect(context.Background())

	if snap.EventsReceivedPerHour != 0 || snap.EventsInStream != 0 || snap.EventsPending != 0 {
		t.Fatalf("expected all-zero snapshot on empty state, got %+v", snap)
	}
	if snap.ProcessingRate != 0 {
		t.Fatalf("expected zero rate when nothing received, got %f", snap.ProcessingRate)
	}
	if snap.ProcessingLagSeconds != 0 {
		t.Fatalf("expected zero lag when hot store is empty, got %f", snap.ProcessingLagSeconds)
	}
}

func TestCollect_ReflectsStreamAndStoreState(t *testing.T) {
	ctx := context.Background()
	stats, log, store := newTestStats(t)

	id, err := log.Append(ctx, map[string]interface{}{"site": "a", "name": "login", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.StoreBatch(ctx, []model.HotEventRow{{
		ID:        id,
		Site:      "a",
		Name:      "login",
		Timestamp: time.Now().UTC(),
		Data:      "{}",
	}}); err != nil {
		t.Fatalf("store batch: %v", err)
	}

	snap := stats.Collect(ctx)
	if snap.EventsInStream != 1 {
		t.Fatalf("expected 1 event in stream, got %d", snap.EventsInStream)
	}
	if snap.EventsReceivedPerHour != 1 {
		t.Fatalf("expected 1 event received in window, got %d", snap.EventsReceivedPerHour)
	}
	if snap.EventsProcessedPerHour != 1 {
		t.Fatalf("expected 1 event processed, got %d", snap.EventsProcessedPerHour)
	}
	if snap.ProcessingLagSeconds < 0 {
		t.Fatalf("expected non-negative lag, got %f", snap.ProcessingLagSeconds)
	}
	if snap.HotStoreSizeBytes <= 0 {
		t.Fatalf("expected positive hot store size, got %d", snap.HotStoreSizeBytes)
	}
}

