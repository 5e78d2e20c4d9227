// Package app wires configuration, storage, recovery and the execution
// engine into a running instance.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
	"github.com/JusticeK18/ArbitrageGuard/internal/engine"
	"github.com/JusticeK18/ArbitrageGuard/internal/infra"
	"github.com/JusticeK18/ArbitrageGuard/internal/storage"
	"github.com/JusticeK18/ArbitrageGuard/replay"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Audit     *storage.AuditLog
	Snapshots *storage.SnapshotManager
	Engine    *engine.Engine

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, workspace
// lock, audit log, and state recovery (latest snapshot + event replay).
func (b *Bootstrap) Initialize(ctx context.Context) error {
	slog.Info("🚀 Bootstrapping Arbitrage Guard...")

	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Workspace layout: _workspace/data/{audit.db, snapshots/}
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	snapDir := filepath.Join(dataDir, "snapshots")

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(snapDir); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	// 3.1 Singleton Instance Lock
	// A second process writing the same audit DB would break the
	// single-writer WAL assumption.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Audit log (Single-Writer WAL DB)
	dbPath := filepath.Join(dataDir, "audit.db")
	audit, err := storage.NewAuditLog(dbPath)
	if err != nil {
		return err
	}
	b.Audit = audit
	slog.Info("✅ Audit log initialized (WAL-mode)", "path", dbPath)

	// 5. Recover ledger state: latest snapshot + replay of the event tail
	b.Snapshots = storage.NewSnapshotManager(snapDir)
	snap, err := b.Snapshots.LoadLatest()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	res, err := replay.Rebuild(ctx, audit, cfg.Risk.BreakerThresholdPct, snap)
	if err != nil {
		return fmt.Errorf("failed to replay audit log: %w", err)
	}

	params := engine.RiskParams{
		MinConfidence:       cfg.Risk.MinConfidence,
		HighConfidence:      cfg.Risk.HighConfidence,
		MaxTradePct:         cfg.Risk.MaxTradePct,
		CooldownBlocks:      cfg.Risk.CooldownBlocks,
		BreakerThresholdPct: cfg.Risk.BreakerThresholdPct,
	}
	b.Engine = engine.NewEngine(domain.Identity(cfg.Owner), params, res.Store, res.Tracker, audit, res.LastSeq)

	pool := b.Engine.PoolTotals()
	slog.Info("✅ Ledger recovered",
		slog.Uint64("last_seq", res.LastSeq),
		slog.Uint64("total_funds", pool.TotalFunds),
		slog.Uint64("trades", b.Engine.Operational().TradeCount))

	return nil
}

// Close releases the audit log and the workspace lock.
func (b *Bootstrap) Close() {
	if b.Audit != nil {
		if err := b.Audit.Close(); err != nil {
			slog.Error("Failed to close audit log", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
