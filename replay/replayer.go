// Package replay reconstructs ledger state from the audit log. Recovery and
// audit verification share one code path: the same event application rules
// that produced the live state reproduce it, optionally starting from a
// snapshot instead of genesis.
package replay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JusticeK18/ArbitrageGuard/internal/breaker"
	"github.com/JusticeK18/ArbitrageGuard/internal/event"
	"github.com/JusticeK18/ArbitrageGuard/internal/ledger"
	"github.com/JusticeK18/ArbitrageGuard/internal/metrics"
	"github.com/JusticeK18/ArbitrageGuard/internal/storage"
	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
)

// Result is the reconstructed ledger state.
type Result struct {
	Store   *ledger.Store
	Tracker *metrics.Tracker
	LastSeq uint64
}

// Rebuild replays audit events into a fresh ledger. When snap is non-nil the
// ledger starts from the snapshot and only events after snap.Seq are applied.
// breakerThresholdPct must match the policy the events were produced under,
// otherwise the replayed breaker verdicts diverge from the recorded ones.
func Rebuild(ctx context.Context, log *storage.AuditLog, breakerThresholdPct uint64, snap *storage.Snapshot) (*Result, error) {
	store := ledger.NewStore()
	tracker := metrics.NewTracker()
	monitor := breaker.NewMonitor(breakerThresholdPct)

	fromSeq := uint64(1)
	var lastSeq uint64

	if snap != nil {
		store.Restore(snap.Pool, snap.State, snap.Accounts, snap.Operators, snap.Trades)
		tracker.Restore(snap.Metrics)
		monitor.Restore(snap.State.CircuitBreakerActive)
		fromSeq = snap.Seq + 1
		lastSeq = snap.Seq
	}

	events, err := log.LoadEvents(ctx, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	if len(events) > 0 {
		slog.Info("Replaying audit events", slog.Int("count", len(events)), slog.Uint64("from_seq", fromSeq))
	}

	next := fromSeq
	for _, ev := range events {
		// Replay must be gapless; a hole in the log is unrecoverable.
		if ev.GetSeq() != next {
			panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", next, ev.GetSeq()))
		}
		applyEvent(store, tracker, monitor, ev)
		lastSeq = ev.GetSeq()
		next++
	}

	return &Result{Store: store, Tracker: tracker, LastSeq: lastSeq}, nil
}

// applyEvent folds one audit event into the ledger, mirroring the engine's
// commit rules. Settlements never re-run the outcome simulation: the
// recorded trade is applied as settled.
func applyEvent(store *ledger.Store, tracker *metrics.Tracker, monitor *breaker.Monitor, ev event.Event) {
	switch e := ev.(type) {
	case *event.DepositEvent:
		store.Accounts().Get(e.Account).Credit(e.Amount)
		pool := store.Pool()
		pool.TotalFunds = safe.UAdd(pool.TotalFunds, e.Amount)

	case *event.WithdrawEvent:
		store.Accounts().Get(e.Account).Debit(e.Amount)
		pool := store.Pool()
		pool.TotalFunds = safe.USub(pool.TotalFunds, e.Amount)

	case *event.OperatorToggledEvent:
		store.SetOperator(e.Operator, e.Authorized)

	case *event.BotControlEvent:
		state := store.State()
		state.BotActive = e.Active
		state.CircuitBreakerActive = e.BreakerActive
		monitor.Restore(e.BreakerActive)

	case *event.ModelUpdateEvent:
		store.State().CurrentModelVersion = e.Version

	case *event.TradeSettledEvent:
		rec := e.Record
		state := store.State()
		state.TradeCount = rec.ID + 1
		state.LastTradeBlock = rec.LogicalBlock

		pool := store.Pool()
		if rec.Success {
			pool.RecordProfit(uint64(rec.ActualProfit))
		} else {
			pool.RecordLoss(uint64(-rec.ActualProfit))
		}

		store.AppendTrade(rec)
		tracker.Update(rec.ModelVersion, rec.Success, rec.Confidence, rec.ActualProfit)

		state.CircuitBreakerActive = monitor.Evaluate(pool.TotalLoss, pool.TotalFunds)

	default:
		slog.Warn("Unknown event type in replay", slog.Any("type", ev.GetType()))
	}
}
