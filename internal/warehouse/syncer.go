package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/nextchamp-saqib/pulse/internal/model"
)

// defaultLockTimeout bounds how long a sync run waits for the cross-process
// file lock before yielding with a Skipped result.
const defaultLockTimeout = 60 * time.Second

// Repository is the subset of internal/repository used to persist sync
// config checkpoints and run history.
type Repository interface {
	CreateSyncRun(ctx context.Context, configID string) (string, error)
	UpdateSyncRun(ctx context.Context, run *model.SyncRun) error
	UpdateCheckpointAndRowSize(ctx context.Context, id, checkpoint string, rowSize int64) error
}

// Syncer drains a Source into a Target, one WarehouseSyncConfig at a time,
// guarded by a cross-process file lock so two processes never sync the same
// table concurrently.
type Syncer struct {
	target      *Target
	repo        Repository
	lockDir     string
	lockTimeout time.Duration
	logger      *slog.Logger
}

func NewSyncer(target *Target, repo Repository, lockDir string, logger *slog.Logger) *Syncer {
	return &Syncer{target: target, repo: repo, lockDir: lockDir, lockTimeout: defaultLockTimeout, logger: logger.With("component", "warehouse.syncer")}
}

// WithLockTimeout overrides the default 60s lock wait, primarily for tests.
func (s *Syncer) WithLockTimeout(d time.Duration) *Syncer {
	s.lockTimeout = d
	return s
}

func (s *Syncer) lockPath(tableName string) string {
	return filepath.Join(s.lockDir, fmt.Sprintf("duckdb_sync_%s.lock", tableName))
}

// Run executes one drain cycle for cfg against source, persisting the
// advanced checkpoint after every successfully inserted batch and a SyncRun
// row describing the outcome. Lock contention yields a Skipped run and a nil
// error; a drain failure yields a Failed run (Status and Log set) together
// with that error. If the SyncRun row cannot be created, Run returns a nil
// run and the error.
func (s *Syncer) Run(ctx context.Context, cfg *model.WarehouseSyncConfig, source Source) (*model.SyncRun, error) {
	runID, err := s.repo.CreateSyncRun(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	run := &model.SyncRun{ID: runID, ConfigID: cfg.ID, Status: model.SyncStatusQueued}

	fl := flock.New(s.lockPath(cfg.TableName))
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	retryDelay := s.lockTimeout / 10
	if retryDelay <= 0 || retryDelay > 200*time.Millisecond {
		retryDelay = 200 * time.Millisecond
	}
	locked, err := fl.TryLockContext(lockCtx, retryDelay)
	if err != nil || !locked {
		run.Status = model.SyncStatusSkipped
		run.Log = fmt.Sprintf("lock %q not acquired within %s", cfg.TableName, s.lockTimeout)
		s.logger.Warn("sync skipped: lock contention", "table", cfg.TableName, "error", err)
		if uerr := s.repo.UpdateSyncRun(ctx, run); uerr != nil {
			s.logger.Error("persist skipped run failed", "error", uerr)
		}
		return run, nil
	}
	defer fl.Unlock()

	started := time.Now().UTC()
	run.StartedAt = &started
	run.Status = model.SyncStatusInProgress
	if err := s.repo.UpdateSyncRun(ctx, run); err != nil {
		s.logger.Warn("persist in-progress run failed", "error", err)
	}

	inserted, checkpoint, rowSize, runErr := s.drain(ctx, cfg, source)

	ended := time.Now().UTC()
	run.EndedAt = &ended
	run.TotalInserted = inserted
	if runErr != nil {
		run.Status = model.SyncStatusFailed
		run.Log = runErr.Error()
		s.logger.Error("sync run failed", "table", cfg.TableName, "error", runErr)
	} else {
		run.Status = model.SyncStatusCompleted
		if checkpoint != "" && checkpoint != cfg.Checkpoint {
			if err := s.repo.UpdateCheckpointAndRowSize(ctx, cfg.ID, checkpoint, rowSize); err != nil {
				s.logger.Error("persist checkpoint failed", "error", err)
			}
		}
	}

	if err := s.repo.UpdateSyncRun(ctx, run); err != nil {
		s.logger.Error("persist final run failed", "error", err)
	}
	return run, runErr
}

// drain implements the core batch loop: fetch -> anti-join insert -> advance
// and persist checkpoint, repeated until a batch comes back short of the
// requested size.
func (s *Syncer) drain(ctx context.Context, cfg *model.WarehouseSyncConfig, source Source) (totalInserted int64, checkpoint string, rowSize int64, err error) {
	checkpoint = cfg.Checkpoint
	rowSize = cfg.RowSize
	batchSize := batchSizeForRowSize(rowSize)

	tableEnsured := false

	for {
		batch, ferr := source.Fetch(ctx, checkpoint, batchSize)
		if ferr != nil {
			return totalInserted, checkpoint, rowSize, fmt.Errorf("fetch batch: %w", ferr)
		}
		if len(batch) == 0 {
			break
		}

		if !tableEnsured {
			if _, eerr := s.target.EnsureTable(ctx, cfg.TableName, batch[0]); eerr != nil {
				return totalInserted, checkpoint, rowSize, fmt.Errorf("ensure table: %w", eerr)
			}
			tableEnsured = true
		}

		n, ierr := s.target.InsertNew(ctx, cfg.TableName, cfg.PrimaryKey, batch)
		if ierr != nil {
			return totalInserted, checkpoint, rowSize, fmt.Errorf("insert batch: %w", ierr)
		}
		totalInserted += n

		last := batch[len(batch)-1]
		if key, ok := last[cfg.CreationKey]; ok && key != "" {
			checkpoint = key
		}
		rowSize = estimateRowSize(batch)
		if perr := s.repo.UpdateCheckpointAndRowSize(ctx, cfg.ID, checkpoint, rowSize); perr != nil {
			return totalInserted, checkpoint, rowSize, fmt.Errorf("persist checkpoint: %w", perr)
		}

		if int64(len(batch)) < batchSize {
			break
		}
	}

	return totalInserted, checkpoint, rowSize, nil
}
