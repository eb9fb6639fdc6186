// Package introspection computes the operational metrics exposed to
// operators: throughput, backlog, processing lag, and storage footprint
// derived from the stream log (C1) and hot event store (C4).
package introspection

import (
	"context"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/hotstore"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

const (
	receivedWindow = 600 * time.Second
	lagWindow      = 10 * time.Minute
	lagSampleSize  = 500
)

// Stats computes the full metrics snapshot. Every accessor it calls on the
// stream log and hot store is itself never-raising, so Collect never fails.
type Stats struct {
	log   *streamlog.Log
	store *hotstore.Store
}

func New(log *streamlog.Log, store *hotstore.Store) *Stats {
	return &Stats{log: log, store: store}
}

// Snapshot is the full /stats response body.
type Snapshot struct {
	EventsReceivedPerHour  int64   `json:"events_received_per_hour"`
	EventsProcessedPerHour int64   `json:"events_processed_per_hour"`
	ProcessingRate         float64 `json:"processing_rate"`
	ProcessingLagSeconds   float64 `json:"processing_lag_seconds"`
	EventsInStream         int64   `json:"events_in_stream"`
	EventsPending          int64   `json:"events_pending"`
	StreamMemoryBytes      int64   `json:"stream_memory_bytes"`
	HotStoreSizeBytes      int64   `json:"duckdb_size_bytes"`
}

// Collect gathers every metric. Individually-failing readers contribute 0
// rather than aborting the whole snapshot.
func (s *Stats) Collect(ctx context.Context) Snapshot {
	received := s.log.RateLast(ctx, receivedWindow)
	processed := s.store.CountSince(ctx, time.Now().Add(-lagWindow))

	var rate float64
	if received > 0 {
		rate = float64(processed) / float64(received)
	}

	return Snapshot{
		EventsReceivedPerHour:  received,
		EventsProcessedPerHour: processed,
		ProcessingRate:         rate,
		ProcessingLagSeconds:   s.processingLag(ctx),
		EventsInStream:         s.log.Length(ctx),
		EventsPending:          s.log.UnackedLength(ctx),
		StreamMemoryBytes:      s.log.MemoryBytes(ctx),
		HotStoreSizeBytes:      s.store.SizeBytes(),
	}
}

// processingLag averages (row.timestamp - receipt time embedded in the
// row's originating stream entry id) across a recent sample, clamping each
// sample non-negative, returning 0 when the sample is empty.
func (s *Stats) processingLag(ctx context.Context) float64 {
	samples := s.store.SampleSince(ctx, time.Now().Add(-lagWindow), lagSampleSize)
	if len(samples) == 0 {
		return 0
	}

	var total float64
	var n int
	for _, sample := range samples {
		receipt, err := streamlog.ReceiptTime(sample.ID)
		if err != nil {
			continue
		}
		lag := sample.Timestamp.Sub(receipt).Seconds()
		if lag < 0 {
			lag = 0
		}
		total += lag
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Consumers reports per-consumer pending/idle state for the ingest
// consumer group.
func (s *Stats) Consumers(ctx context.Context) []streamlog.ConsumerInfo {
	return s.log.Consumers(ctx)
}
