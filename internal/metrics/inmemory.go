package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	IngestAccepted         uint64
	IngestRejected         uint64
	IngestDurationCount    uint64
	IngestDurationTotalNs  int64

	ProcessedAccepted        uint64
	ProcessedDiscarded       uint64
	ProcessedFailed          uint64
	ProcessBatchSizeCount    uint64
	ProcessBatchSizeTotal    uint64
	ProcessDurationCount     uint64
	ProcessDurationTotalNs   int64
	StreamDepth              int64
	StreamPending            int64

	DeadLettered uint64

	SyncRunsCompleted      uint64
	SyncRunsFailed         uint64
	SyncRunsSkipped        uint64
	SyncDurationCount      uint64
	SyncDurationTotalNs    int64
	SyncBatchRowsTotal     int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	ingestAccepted        uint64
	ingestRejected        uint64
	ingestDurationCount   uint64
	ingestDurationTotalNs int64

	processedAccepted      uint64
	processedDiscarded     uint64
	processedFailed        uint64
	processBatchSizeCount  uint64
	processBatchSizeTotal  uint64
	processDurationCount   uint64
	processDurationTotalNs int64
	streamDepth            int64
	streamPending          int64

	deadLettered uint64

	syncRunsCompleted   uint64
	syncRunsFailed      uint64
	syncRunsSkipped     uint64
	syncDurationCount   uint64
	syncDurationTotalNs int64
	syncBatchRowsTotal  int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		IngestAccepted:        atomic.LoadUint64(&m.ingestAccepted),
		IngestRejected:        atomic.LoadUint64(&m.ingestRejected),
		IngestDurationCount:   atomic.LoadUint64(&m.ingestDurationCount),
		IngestDurationTotalNs: atomic.LoadInt64(&m.ingestDurationTotalNs),

		ProcessedAccepted:      atomic.LoadUint64(&m.processedAccepted),
		ProcessedDiscarded:     atomic.LoadUint64(&m.processedDiscarded),
		ProcessedFailed:        atomic.LoadUint64(&m.processedFailed),
		ProcessBatchSizeCount:  atomic.LoadUint64(&m.processBatchSizeCount),
		ProcessBatchSizeTotal:  atomic.LoadUint64(&m.processBatchSizeTotal),
		ProcessDurationCount:   atomic.LoadUint64(&m.processDurationCount),
		ProcessDurationTotalNs: atomic.LoadInt64(&m.processDurationTotalNs),
		StreamDepth:            atomic.LoadInt64(&m.streamDepth),
		StreamPending:          atomic.LoadInt64(&m.streamPending),

		DeadLettered: atomic.LoadUint64(&m.deadLettered),

		SyncRunsCompleted:   atomic.LoadUint64(&m.syncRunsCompleted),
		SyncRunsFailed:      atomic.LoadUint64(&m.syncRunsFailed),
		SyncRunsSkipped:     atomic.LoadUint64(&m.syncRunsSkipped),
		SyncDurationCount:   atomic.LoadUint64(&m.syncDurationCount),
		SyncDurationTotalNs: atomic.LoadInt64(&m.syncDurationTotalNs),
		SyncBatchRowsTotal:  atomic.LoadInt64(&m.syncBatchRowsTotal),
	}
}

// IncIngestEvent increments the accepted/rejected ingest counter.
func (m *InMemoryRecorder) IncIngestEvent(status string) {
	if status == "accepted" {
		atomic.AddUint64(&m.ingestAccepted, 1)
		return
	}
	atomic.AddUint64(&m.ingestRejected, 1)
}

// ObserveIngestDuration records ingest request handling time.
func (m *InMemoryRecorder) ObserveIngestDuration(duration time.Duration) {
	atomic.AddUint64(&m.ingestDurationCount, 1)
	atomic.AddInt64(&m.ingestDurationTotalNs, duration.Nanoseconds())
}

// IncProcessedEvent increments the drain-cycle outcome counter.
func (m *InMemoryRecorder) IncProcessedEvent(status string) {
	switch status {
	case "accepted":
		atomic.AddUint64(&m.processedAccepted, 1)
	case "discarded":
		atomic.AddUint64(&m.processedDiscarded, 1)
	case "failed":
		atomic.AddUint64(&m.processedFailed, 1)
	}
}

// ObserveProcessBatchSize records the size of a processed batch.
func (m *InMemoryRecorder) ObserveProcessBatchSize(size int) {
	atomic.AddUint64(&m.processBatchSizeCount, 1)
	atomic.AddUint64(&m.processBatchSizeTotal, uint64(size))
}

// ObserveProcessDuration records one drain cycle's wall time.
func (m *InMemoryRecorder) ObserveProcessDuration(duration time.Duration) {
	atomic.AddUint64(&m.processDurationCount, 1)
	atomic.AddInt64(&m.processDurationTotalNs, duration.Nanoseconds())
}

// SetStreamDepth sets the current stream length gauge.
func (m *InMemoryRecorder) SetStreamDepth(depth int64) {
	atomic.StoreInt64(&m.streamDepth, depth)
}

// SetStreamPending sets the current unacked-entries gauge.
func (m *InMemoryRecorder) SetStreamPending(depth int64) {
	atomic.StoreInt64(&m.streamPending, depth)
}

// IncDeadLettered increments the dead-letter push counter.
func (m *InMemoryRecorder) IncDeadLettered(reason string) {
	atomic.AddUint64(&m.deadLettered, 1)
}

// IncSyncRun increments the warehouse sync run outcome counter.
func (m *InMemoryRecorder) IncSyncRun(status string) {
	switch status {
	case "completed":
		atomic.AddUint64(&m.syncRunsCompleted, 1)
	case "failed":
		atomic.AddUint64(&m.syncRunsFailed, 1)
	case "skipped":
		atomic.AddUint64(&m.syncRunsSkipped, 1)
	}
}

// ObserveSyncDuration records one sync run's wall time.
func (m *InMemoryRecorder) ObserveSyncDuration(duration time.Duration) {
	atomic.AddUint64(&m.syncDurationCount, 1)
	atomic.AddInt64(&m.syncDurationTotalNs, duration.Nanoseconds())
}

// ObserveSyncBatchRows records the number of rows inserted by a sync run.
func (m *InMemoryRecorder) ObserveSyncBatchRows(rows int64) {
	atomic.AddInt64(&m.syncBatchRowsTotal, rows)
}
