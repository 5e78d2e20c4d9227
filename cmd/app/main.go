package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JusticeK18/ArbitrageGuard/internal/app"
	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
	"github.com/JusticeK18/ArbitrageGuard/internal/infra"
	"github.com/JusticeK18/ArbitrageGuard/internal/scheduler"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. System Bootstrapping (config, audit log, snapshot + replay recovery)
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	eng := bootstrap.Engine

	// 4. Periodic snapshots
	sched := scheduler.NewScheduler(eng, bootstrap.Snapshots, cfg.Snapshot.Keep)
	if cfg.Snapshot.Cron != "" {
		if err := sched.Register(cfg.Snapshot.Cron); err != nil {
			slog.Error("❌ Scheduler setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Proposal feed (Gateway)
	var feed *infra.ProposalFeed
	if cfg.Feed.Enabled {
		var throttle *infra.Throttle
		if cfg.Feed.Burst > 0 {
			throttle = infra.NewThrottle(cfg.Feed.Burst, cfg.Feed.PerSecond)
		}
		feed = infra.NewProposalFeed(cfg.Feed.WSURL, domain.Identity(cfg.Feed.Operator), throttle)
		feed.Start(ctx)
		defer feed.Stop()
		slog.InfoContext(ctx, "✅ Proposal feed started", slog.String("url", cfg.Feed.WSURL))
	}

	slog.InfoContext(ctx, "✨ Arbitrage Guard fully operational. Press Ctrl+C to exit.")

	// 6. Settlement loop: every proposal from the feed goes through the
	// full precondition chain; rejections are logged, never fatal.
	var proposals <-chan infra.Proposal
	if feed != nil {
		proposals = feed.Out()
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("👋 Shutting down gracefully...")
			sched.SnapshotNow()
			return

		case p := <-proposals:
			result, err := eng.SettleTrade(ctx, p.Operator, p.Block, p.Trade)
			if err != nil {
				slog.Warn("Proposal rejected",
					slog.String("proposal_id", p.ID.String()),
					slog.Any("error", err))
				continue
			}
			slog.Info("Trade settled",
				slog.String("proposal_id", p.ID.String()),
				slog.Uint64("trade_id", result.TradeID),
				slog.Int64("profit", result.Profit),
				slog.Bool("breaker_triggered", result.BreakerTriggered))
		}
	}
}
