package handler

import (
	"net/http"
	"strconv"

	"github.com/nextchamp-saqib/pulse/internal/introspection"
)

// IntrospectionHandler serves the operator-facing metrics and log-tail
// endpoints.
type IntrospectionHandler struct {
	stats       *introspection.Stats
	logFilePath string
}

func NewIntrospectionHandler(stats *introspection.Stats, logFilePath string) *IntrospectionHandler {
	return &IntrospectionHandler{stats: stats, logFilePath: logFilePath}
}

// Stats handles GET /stats.
func (h *IntrospectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Collect(r.Context()))
}

const defaultLogTailCount = 50

// Logs handles GET /logs?count=N, a bounded tail of the service's own
// structured log file (newest first), parsed into level/timestamp/message.
func (h *IntrospectionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	count := int64(defaultLogTailCount)
	if raw := r.URL.Query().Get("count"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			count = parsed
		}
	}
	entries := introspection.TailLog(h.logFilePath, count)
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Consumers handles GET /consumers, per-consumer pending/idle state for the
// ingest consumer group.
func (h *IntrospectionHandler) Consumers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"consumers": h.stats.Consumers(r.Context())})
}
