// Package scheduler drives the background cadence the ingestion pipeline
// needs but doesn't provide on its own: a fixed-interval trigger for the
// processor's drain cycle (C3) and the warehouse sync drain loop (C5).
// Neither component is a long-running loop by itself; this package is what
// calls them on a schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Implementations must not block
// indefinitely — a process-level shutdown interrupts between ticks, not
// mid-run, so a job that never returns blocks shutdown.
type Job func(ctx context.Context)

// Scheduler wraps robfig/cron to run the process and sync ticks at
// configured intervals, translating Go durations into "@every" cron specs
// so callers configure it the same way they configure any other interval
// in this codebase.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger.With("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers job to run at the given interval. name is used only for
// logging. The interval becomes an "@every" spec, which robfig/cron runs at
// whole-second resolution: an interval under one second runs once a second,
// and any fraction of a second in a longer interval is dropped. Panics if interval is non-positive or the schedule spec is
// rejected by the cron parser — both are configuration errors that should
// fail fast at startup, not surface as a runtime scheduling miss.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) {
	if interval <= 0 {
		panic("scheduler: interval must be positive for job " + name)
	}
	spec := "@every " + interval.String()
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		job(s.ctx)
		s.logger.Debug("scheduled job ran", "job", name, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		panic("scheduler: invalid interval for job " + name + ": " + err.Error())
	}
	s.logger.Info("scheduled job registered", "job", name, "interval", interval.String())
}

// Start begins running scheduled jobs in the background. Non-blocking.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting")
	s.cron.Start()
}

// Stop cancels the job context and waits for in-flight jobs to finish or
// ctx to be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("scheduler stopping")
	cronCtx := s.cron.Stop()
	s.cancel()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}
}
