package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder against the default Prometheus
// registry, exposed via promhttp.Handler() at /metrics.
type PrometheusRecorder struct {
	ingestTotal      *prometheus.CounterVec
	ingestDuration   prometheus.Histogram
	processedTotal   *prometheus.CounterVec
	processBatchSize prometheus.Histogram
	processDuration  prometheus.Histogram
	streamDepth      prometheus.Gauge
	streamPending    prometheus.Gauge
	deadLetteredTotal *prometheus.CounterVec
	syncRunsTotal    *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	syncBatchRows    prometheus.Histogram
}

// NewPrometheus registers and returns a Recorder backed by prometheus/client_golang.
func NewPrometheus() *PrometheusRecorder {
	return &PrometheusRecorder{
		ingestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_ingest_events_total",
			Help: "Total number of events submitted to the ingest endpoint, by outcome.",
		}, []string{"status"}),
		ingestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_ingest_duration_seconds",
			Help:    "Ingest request handling duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		processedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_processed_events_total",
			Help: "Total number of stream entries observed by the processor, by outcome.",
		}, []string{"status"}),
		processBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_process_batch_size",
			Help:    "Number of entries read per drain cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		processDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_process_duration_seconds",
			Help:    "Drain cycle wall time in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		streamDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_stream_depth",
			Help: "Current stream length (C1 length()).",
		}),
		streamPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_stream_pending",
			Help: "Current unacked entry count (C1 unacked_length()).",
		}),
		deadLetteredTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_dead_lettered_total",
			Help: "Total number of rows pushed to the dead-letter sink, by reason.",
		}, []string{"reason"}),
		syncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_warehouse_sync_runs_total",
			Help: "Total number of warehouse sync runs, by terminal status.",
		}, []string{"status"}),
		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_warehouse_sync_duration_seconds",
			Help:    "Warehouse sync run wall time in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		syncBatchRows: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_warehouse_sync_batch_rows",
			Help:    "Rows inserted per warehouse sync run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}
}

func (p *PrometheusRecorder) IncIngestEvent(status string) {
	p.ingestTotal.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveIngestDuration(duration time.Duration) {
	p.ingestDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncProcessedEvent(status string) {
	p.processedTotal.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveProcessBatchSize(size int) {
	p.processBatchSize.Observe(float64(size))
}

func (p *PrometheusRecorder) ObserveProcessDuration(duration time.Duration) {
	p.processDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetStreamDepth(depth int64) {
	p.streamDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) SetStreamPending(depth int64) {
	p.streamPending.Set(float64(depth))
}

func (p *PrometheusRecorder) IncDeadLettered(reason string) {
	p.deadLetteredTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncSyncRun(status string) {
	p.syncRunsTotal.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveSyncDuration(duration time.Duration) {
	p.syncDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveSyncBatchRows(rows int64) {
	p.syncBatchRows.Observe(float64(rows))
}
