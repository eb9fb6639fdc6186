// Package processor implements the Event Processor (C3): the engine that
// drains C1, classifies entries, persists accepted rows to C4, and
// dead-letters on storage failure. One invocation is one drain cycle; the
// core contract has no internal long-running loop (see
// internal/scheduler for the loop that drives it).
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/nextchamp-saqib/pulse/internal/deadletter"
	"github.com/nextchamp-saqib/pulse/internal/event"
	"github.com/nextchamp-saqib/pulse/internal/model"
	"github.com/nextchamp-saqib/pulse/internal/streamlog"
)

// HotStore is the subset of internal/hotstore.Store the processor needs,
// kept as an interface so tests can inject a failing implementation
// without a real file.
type HotStore interface {
	StoreBatch(ctx context.Context, rows []model.HotEventRow) error
}

// Processor drains one Stream Log into one Hot Store, dead-lettering on
// storage failure.
type Processor struct {
	log        *streamlog.Log
	store      HotStore
	dlq        deadletter.Sink
	minIdle    time.Duration
	readCount  int64
	logger     *slog.Logger
}

// New returns a Processor. readCount is typically StreamMaxLength/2 per
// the component contract.
func New(log *streamlog.Log, store HotStore, dlq deadletter.Sink, readCount int64, minIdle time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		log:       log,
		store:     store,
		dlq:       dlq,
		minIdle:   minIdle,
		readCount: readCount,
		logger:    logger.With("component", "processor"),
	}
}

// Result summarizes one drain cycle.
type Result struct {
	Processed int
	Discarded int
	Failed    int
}

// Process runs exactly one drain cycle. It never returns an error from
// storage or transport failures — those are logged and folded into the
// dead-letter path — so the scheduler always treats a tick as complete
// and never retry-storms.
func (p *Processor) Process(ctx context.Context) Result {
	entries := p.log.Read(ctx, p.readCount, p.minIdle)
	if len(entries) == 0 {
		return Result{}
	}

	outcomes := event.Sanitize(entries)

	var (
		accepted  []model.HotEventRow
		ackIDs    []string
		discarded int
	)
	for _, o := range outcomes {
		ackIDs = append(ackIDs, o.EntryID)
		if o.Accepted() {
			accepted = append(accepted, o.Row)
		} else {
			discarded++
		}
	}

	failed := 0
	if len(accepted) > 0 {
		if err := p.store.StoreBatch(ctx, accepted); err != nil {
			p.logger.Error("hot store batch failed, dead-lettering", "batch_size", len(accepted), "error", err)
			p.dlq.Push(ctx, accepted, "store_failure")
			failed = len(accepted)
			accepted = nil
		}
	}

	if err := p.log.Ack(ctx, ackIDs); err != nil {
		p.logger.Warn("ack failed", "count", len(ackIDs), "error", err)
	}

	result := Result{Processed: len(accepted), Discarded: discarded, Failed: failed}
	p.logger.Info("drain cycle complete",
		"processed", result.Processed,
		"discarded", result.Discarded,
		"failed", result.Failed,
	)
	return result
}
