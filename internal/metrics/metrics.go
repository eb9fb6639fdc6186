// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the ingestion pipeline.
// Implementations can expose these in memory (tests), to Prometheus, or
// discard them entirely (Noop).
type Recorder interface {
	// Ingest endpoint (C2)
	IncIngestEvent(status string) // status: "accepted" or "rejected"
	ObserveIngestDuration(duration time.Duration)

	// Event processor drain cycle (C3)
	IncProcessedEvent(status string) // status: "accepted", "discarded", "failed"
	ObserveProcessBatchSize(size int)
	ObserveProcessDuration(duration time.Duration)
	SetStreamDepth(depth int64)
	SetStreamPending(depth int64)

	// Dead-letter sink (C7)
	IncDeadLettered(reason string)

	// Warehouse sync (C5)
	IncSyncRun(status string) // status: "completed", "failed", "skipped"
	ObserveSyncDuration(duration time.Duration)
	ObserveSyncBatchRows(rows int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
