package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncIngestEvent(status string)                {}
func (n *NoopRecorder) ObserveIngestDuration(duration time.Duration) {}

func (n *NoopRecorder) IncProcessedEvent(status string)                  {}
func (n *NoopRecorder) ObserveProcessBatchSize(size int)                  {}
func (n *NoopRecorder) ObserveProcessDuration(duration time.Duration)     {}
func (n *NoopRecorder) SetStreamDepth(depth int64)                        {}
func (n *NoopRecorder) SetStreamPending(depth int64)                      {}

func (n *NoopRecorder) IncDeadLettered(reason string) {}

func (n *NoopRecorder) IncSyncRun(status string)                      {}
func (n *NoopRecorder) ObserveSyncDuration(duration time.Duration)    {}
func (n *NoopRecorder) ObserveSyncBatchRows(rows int64)               {}
