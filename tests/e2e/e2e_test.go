//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/auth"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/repository"
)

type ingestResponse struct {
	ID string `json:"id"`
}

type bulkIngestResponse struct {
	Accepted int `json:"accepted"`
	Failed   int `json:"failed"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("PULSE_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	secret := bootstrapSecret(t, dbURL)

	assertHealthy(t, baseURL)

	eventID := ingestEvent(t, baseURL, secret)
	if eventID == "" {
		t.Fatalf("ingest response missing id")
	}

	bulkIngestEvents(t, baseURL, secret)

	assertStatsReachable(t, baseURL, secret)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// bootstrapSecret provisions the single shared ingest secret Pulse
// authenticates every producer with, returning its plaintext form.
func bootstrapSecret(t *testing.T, dbURL string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	generated, err := auth.GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	settings := &model.Settings{
		ID:              1,
		APIKeyHash:      generated.Hash,
		RateLimit:       10000,
		MaxStreamLength: 100000,
		Tenants:         []string{"default"},
		UpdatedAt:       time.Now().UTC(),
	}

	if err := repo.UpsertSettings(ctx, settings); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}

	return generated.Plaintext
}

func assertHealthy(t *testing.T, baseURL string) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(10 * time.Second)
	var lastStatus int
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/readyz")
		if err == nil {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			if lastStatus == http.StatusOK {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("server did not become ready, last status %d", lastStatus)
}

func ingestEvent(t *testing.T, baseURL, secret string) string {
	t.Helper()

	event := model.Event{
		EventName:  "e2e.smoke",
		CapturedAt: time.Now().UTC(),
		Site:       "e2e",
		App:        "smoke",
		Properties: map[string]interface{}{"run": "e2e"},
	}

	var resp ingestResponse
	status := doJSON(t, http.MethodPost, baseURL+"/ingest", secret, event, &resp)
	if status != http.StatusAccepted && status != http.StatusOK && status != http.StatusCreated {
		t.Fatalf("expected success from /ingest, got %d", status)
	}
	return resp.ID
}

func bulkIngestEvents(t *testing.T, baseURL, secret string) {
	t.Helper()

	events := []model.Event{
		{EventName: "e2e.bulk.one", CapturedAt: time.Now().UTC(), Site: "e2e"},
		{EventName: "e2e.bulk.two", CapturedAt: time.Now().UTC(), Site: "e2e"},
	}

	var resp bulkIngestResponse
	status := doJSON(t, http.MethodPost, baseURL+"/bulk_ingest", secret, events, &resp)
	if status != http.StatusAccepted && status != http.StatusOK {
		t.Fatalf("expected success from /bulk_ingest, got %d", status)
	}
	if resp.Accepted != len(events) {
		t.Fatalf("expected %d accepted, got %d (failed=%d)", len(events), resp.Accepted, resp.Failed)
	}
}

func assertStatsReachable(t *testing.T, baseURL, secret string) {
	t.Helper()

	var resp map[string]any
	status := doJSON(t, http.MethodGet, baseURL+"/stats", secret, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from /stats, got %d", status)
	}
}

func doJSON(t *testing.T, method, url, secret string, body any, out any) int {
	t.Helper()

	var buf *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	} else {
		buf = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(secret) != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && resp.ContentLength != 0 {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}
