package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nextchamp-saqib/pulse/internal/auth"
	"github.com/nextchamp-saqib/pulse/internal/ingest"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/pulseerr"
)

// IngestHandler serves the producer-facing ingest endpoints.
type IngestHandler struct {
	publisher *ingest.Publisher
	logger    *slog.Logger
}

func NewIngestHandler(publisher *ingest.Publisher, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{publisher: publisher, logger: logger.With("component", "handler.ingest")}
}

// maxBulkEvents bounds a single bulk_ingest payload.
const maxBulkEvents = 1000

// Ingest handles POST /ingest: a single event.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeIngestError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}

	tenant := auth.TenantFromContext(r.Context())
	id, err := h.publisher.Publish(r.Context(), tenant, ev)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// BulkIngest handles POST /bulk_ingest: an array of events. Each event is
// validated and appended independently; failures are reported per-index
// rather than aborting or silently dropping the batch.
func (h *IngestHandler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	var events []model.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeIngestError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not a valid JSON array")
		return
	}
	if len(events) == 0 {
		writeIngestError(w, http.StatusBadRequest, "EMPTY_BATCH", "bulk_ingest requires at least one event")
		return
	}
	if len(events) > maxBulkEvents {
		writeIngestError(w, http.StatusBadRequest, "BATCH_TOO_LARGE", "bulk_ingest accepts at most 1000 events per call")
		return
	}

	tenant := auth.TenantFromContext(r.Context())
	result := h.publisher.PublishBulk(r.Context(), tenant, events)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": result.Accepted,
		"failed":   len(result.Failures),
		"failures": result.Failures,
	})
}

func (h *IngestHandler) writeError(w http.ResponseWriter, err error) {
	if pulseerr.IsKind(err, pulseerr.KindValidation) {
		writeIngestError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.logger.Error("ingest failed", slog.String("error", err.Error()))
	writeIngestError(w, http.StatusBadGateway, "INGEST_FAILED", "failed to append event")
}

func writeIngestError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}
