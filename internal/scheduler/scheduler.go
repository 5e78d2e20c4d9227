// Package scheduler runs periodic maintenance: ledger snapshots and
// snapshot retention.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/JusticeK18/ArbitrageGuard/internal/engine"
	"github.com/JusticeK18/ArbitrageGuard/internal/storage"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Engine    *engine.Engine
	Snapshots *storage.SnapshotManager

	keep int
}

// NewScheduler creates a new Scheduler. keep is the number of snapshot files
// retained after each run.
func NewScheduler(e *engine.Engine, sm *storage.SnapshotManager, keep int) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Engine:    e,
		Snapshots: sm,
		keep:      keep,
	}
}

// Register wires the snapshot task to the given cron spec (seconds field
// included, e.g. "0 */5 * * * *").
func (s *Scheduler) Register(snapshotCron string) error {
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("✅ Snapshot scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	ctx := s.Cron.Stop()
	<-ctx.Done()
	slog.Info("Snapshot scheduler stopped")
}

// SnapshotNow captures and persists a snapshot immediately (manual trigger,
// shutdown path).
func (s *Scheduler) SnapshotNow() {
	s.snapshotTask()
}

func (s *Scheduler) snapshotTask() {
	snap := s.Engine.Snapshot()
	if err := s.Snapshots.Save(snap); err != nil {
		slog.Error("Snapshot save failed", slog.Any("error", err))
		return
	}
	if s.keep > 0 {
		if err := s.Snapshots.Cleanup(s.keep); err != nil {
			slog.Error("Snapshot cleanup failed", slog.Any("error", err))
		}
	}
}
