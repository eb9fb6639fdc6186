// Command loadsim generates synthetic /ingest and /bulk_ingest traffic
// against a running Pulse instance. It simulates a population of sites,
// each sending events at its own randomized pace with occasional bursts
// and quiet periods, rather than a flat fixed-rate hammer.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

var apps = []string{"frappe", "erpnext", "gameplan", "hrms", "helpdesk"}

var eventNames = []string{
	"page_view", "session_start", "session_end", "feature_used", "error_raised",
}

func main() {
	var (
		baseURL      = flag.String("base-url", envOrDefault("PULSE_BASE_URL", "http://localhost:8080"), "Pulse server base URL")
		secret       = flag.String("secret", os.Getenv("PULSE_INGEST_SECRET"), "bearer secret for the ingest API")
		sites        = flag.Int("sites", 50, "number of simulated sites")
		minInterval  = flag.Duration("min-interval", 2*time.Second, "minimum delay between a site's events")
		maxInterval  = flag.Duration("max-interval", 10*time.Second, "maximum delay between a site's events")
		burstChance  = flag.Float64("burst-probability", 0.05, "probability a site sends a burst instead of a single event")
		quietChance  = flag.Float64("quiet-probability", 0.02, "probability a site goes quiet for a while instead of sending")
		quietFor     = flag.Duration("quiet-duration", 30*time.Second, "how long a quiet period lasts")
		runFor       = flag.Duration("duration", 0, "stop after this long (0 = run until interrupted)")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "secret is required (-secret or PULSE_INGEST_SECRET)")
		os.Exit(1)
	}
	if *minInterval <= 0 || *maxInterval < *minInterval {
		fmt.Fprintln(os.Stderr, "min-interval must be positive and <= max-interval")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *runFor)
		defer cancel()
	}

	sim := &simulator{
		baseURL:     strings.TrimRight(*baseURL, "/"),
		secret:      *secret,
		client:      &http.Client{Timeout: 10 * time.Second},
		minInterval: *minInterval,
		maxInterval: *maxInterval,
		burstChance: *burstChance,
		quietChance: *quietChance,
		quietFor:    *quietFor,
		logger:      logger,
	}

	var wg sync.WaitGroup
	for i := 0; i < *sites; i++ {
		wg.Add(1)
		go func(siteID int) {
			defer wg.Done()
			sim.runSite(ctx, siteID)
		}(i)
	}

	logger.Info("loadsim running", "sites", *sites, "base_url", sim.baseURL)
	wg.Wait()
	logger.Info("loadsim finished", "events_sent", atomic.LoadInt64(&sim.eventsSent))
}

type simulator struct {
	baseURL     string
	secret      string
	client      *http.Client
	minInterval time.Duration
	maxInterval time.Duration
	burstChance float64
	quietChance float64
	quietFor    time.Duration
	logger      *slog.Logger
	eventsSent  int64
}

func (s *simulator) runSite(ctx context.Context, siteID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(siteID)))
	site := fmt.Sprintf("site-%04d", siteID)
	app := apps[rng.Intn(len(apps))]

	for {
		wait := s.minInterval + time.Duration(rng.Int63n(int64(s.maxInterval-s.minInterval)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		switch {
		case rng.Float64() < s.quietChance:
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.quietFor):
			}
		case rng.Float64() < s.burstChance:
			s.sendBulk(ctx, site, app, rng, 3+rng.Intn(5))
		default:
			s.sendOne(ctx, site, app, rng)
		}
	}
}

func (s *simulator) sendOne(ctx context.Context, site, app string, rng *rand.Rand) {
	ev := s.randomEvent(site, app, rng)
	if err := s.post(ctx, "/ingest", ev); err != nil {
		s.logger.Warn("ingest failed", "site", site, "error", err)
		return
	}
	atomic.AddInt64(&s.eventsSent, 1)
}

func (s *simulator) sendBulk(ctx context.Context, site, app string, rng *rand.Rand, count int) {
	batch := make([]model.Event, count)
	for i := range batch {
		batch[i] = s.randomEvent(site, app, rng)
	}
	if err := s.post(ctx, "/bulk_ingest", batch); err != nil {
		s.logger.Warn("bulk_ingest failed", "site", site, "error", err)
		return
	}
	atomic.AddInt64(&s.eventsSent, int64(count))
}

func (s *simulator) randomEvent(site, app string, rng *rand.Rand) model.Event {
	return model.Event{
		EventName:  eventNames[rng.Intn(len(eventNames))],
		CapturedAt: time.Now().UTC(),
		Site:       site,
		App:        app,
		AppVersion: "1.0.0",
		Properties: map[string]interface{}{"simulated": true},
	}
}

func (s *simulator) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", http.MethodPost, path, resp.StatusCode)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
