// Package ingest implements the producer-facing entry point (C2): request
// validation and appending accepted events onto the tenant's stream log.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextchamp-saqib/pulse/internal/event"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/pulseerr"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

// Publisher appends validated events onto a tenant's stream log. It holds
// no tenant-specific state itself; each call resolves the stream log for
// the tenant named in the request.
type Publisher struct {
	client     *redis.Client
	streamName string
	group      string
	consumer   string
	maxLen     int64
	logger     *slog.Logger
}

func NewPublisher(client *redis.Client, streamName, group, consumer string, maxLen int64, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:     client,
		streamName: streamName,
		group:      group,
		consumer:   consumer,
		maxLen:     maxLen,
		logger:     logger.With("component", "ingest.publisher"),
	}
}

func (p *Publisher) logFor(tenant string) *streamlog.Log {
	return streamlog.New(p.client, tenant, p.streamName, p.group, p.consumer, p.maxLen, p.logger)
}

// Publish validates ev and appends it to tenant's stream, returning the
// assigned stream entry id. Validation failures are ValidationErrors;
// append failures are TransportErrors.
func (p *Publisher) Publish(ctx context.Context, tenant string, ev model.Event) (string, error) {
	if err := validate(ev); err != nil {
		return "", err
	}

	fields := event.FromIngest(ev, time.Now().UTC())
	return p.logFor(tenant).Append(ctx, fields)
}

// BulkResult reports the outcome of a bulk_ingest call: how many of the
// submitted events were accepted, and the index/reason for each rejection.
// Partial failures are reported explicitly rather than swallowed.
type BulkResult struct {
	Accepted int
	Failures []BulkFailure
}

type BulkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// PublishBulk publishes each event independently, continuing past
// individual failures and reporting them in the result.
func (p *Publisher) PublishBulk(ctx context.Context, tenant string, events []model.Event) BulkResult {
	result := BulkResult{}
	log := p.logFor(tenant)

	for i, ev := range events {
		if err := validate(ev); err != nil {
			result.Failures = append(result.Failures, BulkFailure{Index: i, Reason: err.Error()})
			continue
		}
		fields := event.FromIngest(ev, time.Now().UTC())
		if _, err := log.Append(ctx, fields); err != nil {
			result.Failures = append(result.Failures, BulkFailure{Index: i, Reason: err.Error()})
			continue
		}
		result.Accepted++
	}
	return result
}

func validate(ev model.Event) error {
	var missing []string
	if ev.EventName == "" {
		missing = append(missing, "event_name")
	}
	if ev.CapturedAt.IsZero() {
		missing = append(missing, "captured_at")
	}
	if len(missing) > 0 {
		return pulseerr.Validation(fmt.Sprintf("missing required field(s): %v", missing), missing)
	}
	return nil
}
