package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

type fakeStore struct {
	fail  bool
	batch []model.HotEventRow
}

func (f *fakeStore) StoreBatch(ctx context.Context, rows []model.HotEventRow) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.batch = append(f.batch, rows...)
	return nil
}

type fakeSink struct {
	pushed []model.HotEventRow
	reason string
}

func (f *fakeSink) Push(ctx context.Context, rows []model.HotEventRow, reason string) {
	f.pushed = append(f.pushed, rows...)
	f.reason = reason
}

func newTestLog(t *testing.T) *streamlog.Log {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := streamlog.New(client, "acme", "pulse:events", "event_processors", "worker-a", 1000, logger)
	if err := log.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	return log
}

func TestProcess_HappyPath(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	log.Append(ctx, map[string]interface{}{"site": "s1", "name": "login", "timestamp": "2025-01-01T00:00:00Z"})

	store := &fakeStore{}
	sink := &fakeSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(log, store, sink, 50000, 5*time.Second, logger)

	result := p.Process(ctx)
	if result.Processed != 1 || result.Discarded != 0 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(store.batch) != 1 {
		t.Fatalf("expected 1 row stored, got %d", len(store.batch))
	}
	if got := log.UnackedLength(ctx); got != 0 {
		t.Errorf("expected 0 unacked, got %d", got)
	}
}

func TestProcess_DiscardsMalformedEntry(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	log.Append(ctx, map[string]interface{}{"name": "login"}) // missing site/timestamp

	store := &fakeStore{}
	sink := &fakeSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(log, store, sink, 50000, 5*time.Second, logger)

	result := p.Process(ctx)
	if result.Discarded != 1 || result.Processed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := log.UnackedLength(ctx); got != 0 {
		t.Errorf("expected discarded entry to be acked, got unacked=%d", got)
	}
}

func TestProcess_DeadLettersOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	log.Append(ctx, map[string]interface{}{"site": "s1", "name": "login", "timestamp": "2025-01-01T00:00:00Z"})
	log.Append(ctx, map[string]interface{}{"site": "s1", "name": "logout", "timestamp": "2025-01-01T00:01:00Z"})

	store := &fakeStore{fail: true}
	sink := &fakeSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(log, store, sink, 50000, 5*time.Second, logger)

	result := p.Process(ctx)
	if result.Failed != 2 || result.Processed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(sink.pushed) != 2 {
		t.Fatalf("expected both rows dead-lettered, got %d", len(sink.pushed))
	}
	if got := log.UnackedLength(ctx); got != 0 {
		t.Errorf("expected all entries acked despite store failure, got unacked=%d", got)
	}
}

func TestProcess_EmptyStreamIsNoop(t *testing.T) {
	log := newTestLog(t)
	store := &fakeStore{}
	sink := &fakeSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(log, store, sink, 50000, 5*time.Second, logger)

	result := p.Process(context.Background())
	if result != (Result{}) {
		t.Errorf("expected zero result, got %+v", result)
	}
}
