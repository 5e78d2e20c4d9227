// Scenario runner: a deterministic end-to-end exercise of the execution
// engine in pure in-memory mode. Useful for eyeballing the policy chain,
// breaker behaviour and metrics without touching a workspace.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
	"github.com/JusticeK18/ArbitrageGuard/internal/engine"
	"github.com/JusticeK18/ArbitrageGuard/internal/ledger"
	"github.com/JusticeK18/ArbitrageGuard/internal/metrics"
)

const (
	owner    = domain.Identity("scenario-owner")
	operator = domain.Identity("scenario-operator")
	outsider = domain.Identity("mallory")
)

func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting ledger scenario run...")

	ctx := context.Background()
	store := ledger.NewStore()
	eng := engine.NewEngine(owner, engine.DefaultRiskParams(), store, metrics.NewTracker(), nil, 0)

	// 2. Funding and authorization
	must(eng.DepositFunds(ctx, "alice", 1, 10_000))
	must(eng.DepositFunds(ctx, "bob", 2, 5_000))
	must(eng.AuthorizeOperator(ctx, owner, 3, operator))
	slog.Info("✅ Pool funded", "total_funds", eng.PoolTotals().TotalFunds)

	// 3. Policy chain rejections
	if _, err := eng.SettleTrade(ctx, outsider, 10, proposal(100, 50, 90)); err != nil {
		slog.Info("Rejected as expected (unauthorized caller)", "error", err)
	}
	if _, err := eng.SettleTrade(ctx, operator, 10, proposal(100, 50, 60)); err != nil {
		slog.Info("Rejected as expected (low confidence)", "error", err)
	}
	if _, err := eng.SettleTrade(ctx, operator, 10, proposal(2_000, 50, 90)); err != nil {
		slog.Info("Rejected as expected (over size limit)", "error", err)
	}

	// 4. Settlements: one high-confidence, one haircut
	res, err := eng.SettleTrade(ctx, operator, 10, proposal(1_000, 300, 90))
	must(err)
	slog.Info("Trade settled (full profit)", "trade_id", res.TradeID, "profit", res.Profit)

	res, err = eng.SettleTrade(ctx, operator, 20, proposal(500, 100, 75))
	must(err)
	slog.Info("Trade settled (10% haircut)", "trade_id", res.TradeID, "profit", res.Profit)

	// Cooldown blocks the immediate follow-up
	if _, err := eng.SettleTrade(ctx, operator, 25, proposal(100, 50, 90)); err != nil {
		slog.Info("Rejected as expected (cooldown)", "error", err)
	}

	// 5. Circuit breaker: force accumulated losses past the threshold, then
	// watch the next settlement trip the breaker and stay tripped.
	pool := eng.PoolTotals()
	slog.Info("Simulating drawdown", "total_funds", pool.TotalFunds)
	// The simulation never produces losing settlements, so the drawdown is
	// booked directly against the pool to drive the breaker path.
	store.Pool().RecordLoss(pool.TotalFunds / 4)

	res, err = eng.SettleTrade(ctx, operator, 40, proposal(100, 50, 90))
	must(err)
	slog.Info("⚡ Breaker evaluation", "breaker_triggered", res.BreakerTriggered)

	if _, err := eng.SettleTrade(ctx, operator, 60, proposal(100, 50, 90)); err != nil {
		slog.Info("Rejected as expected (breaker open)", "error", err)
	}

	// Owner resume is the only reset path
	must(eng.ResumeBot(ctx, owner, 61))
	res, err = eng.SettleTrade(ctx, operator, 70, proposal(100, 50, 90))
	must(err)
	slog.Info("Trade settled after resume", "trade_id", res.TradeID)

	// 6. Final report
	pool = eng.PoolTotals()
	state := eng.Operational()
	slog.Info("📊 Final pool", "funds", pool.TotalFunds, "profit", pool.TotalProfit, "loss", pool.TotalLoss)
	slog.Info("📊 Final state", "trades", state.TradeCount, "model_version", state.CurrentModelVersion)

	if m, ok := eng.ModelMetrics(state.CurrentModelVersion); ok {
		slog.Info("📊 Model metrics",
			"predictions", m.TotalPredictions,
			"success_rate", m.SuccessRate().StringFixed(2),
			"avg_confidence", m.AverageConfidence,
			"total_profit", m.TotalProfit)
	}

	slog.Info("✨ Scenario complete")
}

func proposal(amount, predicted, confidence uint64) domain.TradeProposal {
	return domain.TradeProposal{
		Amount:          amount,
		PredictedProfit: predicted,
		Confidence:      confidence,
		Source:          "USDC",
		Target:          "WETH",
	}
}

func must(err error) {
	if err != nil {
		slog.Error("❌ Scenario step failed", "error", err)
		os.Exit(1)
	}
}
