package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nextchamp-saqib/pulse/internal/auth"
	"github.com/nextchamp-saqib/pulse/internal/ingest"
	"github.com/nextchamp-saqib/pulse/internal/model"
)

func newTestIngestHandler(t *testing.T) *IngestHandler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := ingest.NewPublisher(client, "pulse:events", "event_processors", "worker-a", 1000, logger)
	return NewIngestHandler(publisher, logger)
}

func withTenant(req *http.Request, tenant string) *http.Request {
	ctx := auth.ContextWithAuth(req.Context(), &model.AuthContext{Tenant: tenant})
	return req.WithContext(ctx)
}

func TestIngestHandler_Ingest_Accepted(t *testing.T) {
	h := newTestIngestHandler(t)

	body, _ := json.Marshal(model.Event{EventName: "login", CapturedAt: time.Now(), Site: "app.example.com"})
	req := withTenant(httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body)), "acme")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] == "" {
		t.Error("expected non-empty id in response")
	}
}

func TestIngestHandler_Ingest_InvalidJSON(t *testing.T) {
	h := newTestIngestHandler(t)

	req := withTenant(httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte("not json"))), "acme")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestHandler_Ingest_ValidationError(t *testing.T) {
	h := newTestIngestHandler(t)

	body, _ := json.Marshal(model.Event{})
	req := withTenant(httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body)), "acme")
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngestHandler_BulkIngest_PartialFailure(t *testing.T) {
	h := newTestIngestHandler(t)

	events := []model.Event{
		{EventName: "login", CapturedAt: time.Now()},
		{EventName: "", CapturedAt: time.Now()},
	}
	body, _ := json.Marshal(events)
	req := withTenant(httptest.NewRequest(http.MethodPost, "/bulk_ingest", bytes.NewReader(body)), "acme")
	rec := httptest.NewRecorder()

	h.BulkIngest(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Accepted int `json:"accepted"`
		Failed   int `json:"failed"`
		Failures []struct {
			Index  int    `json:"index"`
			Reason string `json:"reason"`
		} `json:"failures"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Accepted != 1 || resp.Failed != 1 {
		t.Fatalf("expected 1 accepted, 1 failed, got %+v", resp)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].Index != 1 {
		t.Fatalf("expected failure at index 1, got %+v", resp.Failures)
	}
}

func TestIngestHandler_BulkIngest_EmptyBatch(t *testing.T) {
	h := newTestIngestHandler(t)

	body, _ := json.Marshal([]model.Event{})
	req := withTenant(httptest.NewRequest(http.MethodPost, "/bulk_ingest", bytes.NewReader(body)), "acme")
	rec := httptest.NewRecorder()

	h.BulkIngest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
