// Package deadletter implements the Dead-Letter Sink (C7): a durable,
// best-effort destination for batches the hot store failed to persist.
package deadletter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

// Sink accepts batches that could not be persisted to the hot store.
type Sink interface {
	Push(ctx context.Context, rows []model.HotEventRow, reason string)
}

// StreamSink deposits rejected batches onto a secondary capped stream,
// reusing the same append machinery as the primary Stream Log.
type StreamSink struct {
	log    *streamlog.Log
	logger *slog.Logger
}

// NewStreamSink returns a Sink backed by the given dead-letter stream log.
// The caller is responsible for pointing log at a distinct stream name
// (conventionally "<name>:dlq") from the primary log.
func NewStreamSink(log *streamlog.Log, logger *slog.Logger) *StreamSink {
	return &StreamSink{log: log, logger: logger.With("component", "deadletter")}
}

// Push appends the whole batch to the dead-letter stream as a single entry
// so the append is atomic per batch: a partial mid-batch failure never
// splits the batch across two entries. Failures are logged only; a
// dead-letter failure must never block the caller's ACK path.
func (s *StreamSink) Push(ctx context.Context, rows []model.HotEventRow, reason string) {
	if len(rows) == 0 {
		return
	}

	blob, err := json.Marshal(rows)
	if err != nil {
		s.logger.Error("marshal dead-letter batch failed", "count", len(rows), "error", err)
		return
	}

	_, err = s.log.Append(ctx, map[string]interface{}{
		"reason": reason,
		"count":  len(rows),
		"rows":   string(blob),
	})
	if err != nil {
		s.logger.Error("dead-letter append failed", "count", len(rows), "error", err)
	}
}
