// Package engine implements the trade execution engine: the single
// orchestrator through which every ledger mutation flows. Each public
// operation is one serialized critical section that either commits all of
// its mutations or none of them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/JusticeK18/ArbitrageGuard/internal/breaker"
	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
	"github.com/JusticeK18/ArbitrageGuard/internal/event"
	"github.com/JusticeK18/ArbitrageGuard/internal/ledger"
	"github.com/JusticeK18/ArbitrageGuard/internal/metrics"
	"github.com/JusticeK18/ArbitrageGuard/internal/policy"
	"github.com/JusticeK18/ArbitrageGuard/internal/storage"
	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
)

// RiskParams is the fixed risk policy the engine enforces.
type RiskParams struct {
	MinConfidence       uint64 // floor for accepting a proposal
	HighConfidence      uint64 // at or above: full predicted profit, no haircut
	MaxTradePct         uint64 // max trade size as a percentage of the pool
	CooldownBlocks      uint64 // min logical-clock ticks between settlements
	BreakerThresholdPct uint64 // loss ratio that trips the circuit breaker
}

// DefaultRiskParams returns the production policy.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		MinConfidence:       70,
		HighConfidence:      85,
		MaxTradePct:         10,
		CooldownBlocks:      10,
		BreakerThresholdPct: 20,
	}
}

// Engine executes trade settlements and administrative operations against an
// injected ledger store. The audit log may be nil (pure in-memory mode, used
// by tests); when present, every committed mutation is persisted WAL-first.
type Engine struct {
	mu      sync.Mutex
	owner   domain.Identity
	params  RiskParams
	store   *ledger.Store
	tracker *metrics.Tracker
	monitor *breaker.Monitor
	audit   *storage.AuditLog
	nextSeq uint64
}

// NewEngine creates an engine. lastSeq is the highest sequence number already
// in the audit log (0 for a fresh log) so numbering continues after recovery.
func NewEngine(
	owner domain.Identity,
	params RiskParams,
	store *ledger.Store,
	tracker *metrics.Tracker,
	audit *storage.AuditLog,
	lastSeq uint64,
) *Engine {
	monitor := breaker.NewMonitor(params.BreakerThresholdPct)
	monitor.Restore(store.Operational().CircuitBreakerActive)

	return &Engine{
		owner:   owner,
		params:  params,
		store:   store,
		tracker: tracker,
		monitor: monitor,
		audit:   audit,
		nextSeq: lastSeq + 1,
	}
}

// ValidateProposal applies the full ordered precondition list against the
// current ledger state, short-circuiting on the first failure. This is the
// single rule set: the settlement path calls it, and tests exercise the same
// routine, so the checks are never duplicated inline.
func ValidateProposal(
	st *ledger.Store,
	params RiskParams,
	caller domain.Identity,
	block uint64,
	p domain.TradeProposal,
) error {
	if !st.IsOperator(caller) {
		return domain.ErrUnauthorized
	}

	state := st.Operational()
	if !state.BotActive {
		return domain.ErrBotPaused
	}
	if state.CircuitBreakerActive {
		return domain.ErrCircuitBreakerActive
	}

	if !policy.ConfidenceSufficient(p.Confidence, params.MinConfidence) {
		return domain.ErrInvalidConfidence
	}

	pool := st.PoolTotals()
	if pool.TotalFunds < p.Amount {
		return domain.ErrInsufficientFunds
	}
	if !policy.WithinSizeLimit(p.Amount, pool.TotalFunds, params.MaxTradePct) {
		return domain.ErrMaxTradeExceeded
	}

	if !policy.CooldownElapsed(state.LastTradeBlock, block, params.CooldownBlocks) {
		return domain.ErrCooldownActive
	}

	return nil
}

// simulateOutcome computes the deterministic settled profit. At or above the
// high-confidence threshold the full predicted profit lands; below it a 10%
// haircut is taken with integer truncation. Both branches are non-negative
// for a non-negative prediction, but the result is carried signed.
func simulateOutcome(predicted, confidence, highConfidence uint64) int64 {
	if predicted > math.MaxInt64 {
		panic(fmt.Sprintf("PREDICTED_PROFIT_OVERFLOW: %d", predicted))
	}
	p := int64(predicted)
	if confidence >= highConfidence {
		return p
	}
	return safe.Sub(p, p/10)
}

// commit persists an event WAL-first and advances the sequence counter.
// Persistence failure is unrecoverable: the in-memory mutation has not been
// applied yet, and continuing without a durable record would fork the log.
func (e *Engine) commit(ctx context.Context, ev event.Event) {
	if e.audit != nil {
		if err := e.audit.SaveEvent(ctx, ev); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}
	e.nextSeq++
}

// SettleTrade validates, settles and accounts one trade proposal. Callable
// only by an authorized operator. On any precondition failure the ledger is
// untouched and the corresponding policy error is returned.
func (e *Engine) SettleTrade(
	ctx context.Context,
	caller domain.Identity,
	block uint64,
	proposal domain.TradeProposal,
) (domain.TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ValidateProposal(e.store, e.params, caller, block, proposal); err != nil {
		return domain.TradeResult{}, err
	}

	actual := simulateOutcome(proposal.PredictedProfit, proposal.Confidence, e.params.HighConfidence)
	success := actual >= 0

	state := e.store.State()
	record := domain.TradeRecord{
		ID:              state.TradeCount, // pre-increment id
		Amount:          proposal.Amount,
		PredictedProfit: proposal.PredictedProfit,
		ActualProfit:    actual,
		Confidence:      proposal.Confidence,
		ModelVersion:    state.CurrentModelVersion,
		LogicalBlock:    block,
		Success:         success,
	}

	e.commit(ctx, &event.TradeSettledEvent{
		BaseEvent: event.BaseEvent{Seq: e.nextSeq, Block: block},
		Operator:  caller,
		Record:    record,
	})

	// Atomic mutation set: counter, clock marker, P/L, history, metrics,
	// breaker verdict. Nothing below can fail.
	state.TradeCount++
	state.LastTradeBlock = block

	pool := e.store.Pool()
	if success {
		pool.RecordProfit(uint64(actual))
	} else {
		pool.RecordLoss(uint64(-actual))
	}

	e.store.AppendTrade(record)
	e.tracker.Update(record.ModelVersion, success, record.Confidence, actual)

	tripped := e.monitor.Evaluate(pool.TotalLoss, pool.TotalFunds)
	state.CircuitBreakerActive = tripped

	slog.Info("Trade settled",
		slog.Uint64("trade_id", record.ID),
		slog.String("operator", string(caller)),
		slog.Uint64("amount", record.Amount),
		slog.Int64("profit", actual),
		slog.Bool("success", success),
		slog.Bool("breaker", tripped))

	return domain.TradeResult{
		TradeID:          record.ID,
		Executed:         true,
		Profit:           actual,
		BreakerTriggered: tripped,
	}, nil
}

// DepositFunds credits the caller's account and the fund pool. Open to any
// identity.
func (e *Engine) DepositFunds(ctx context.Context, caller domain.Identity, block uint64, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commit(ctx, &event.DepositEvent{
		BaseEvent: event.BaseEvent{Seq: e.nextSeq, Block: block},
		Account:   caller,
		Amount:    amount,
	})

	e.store.Accounts().Get(caller).Credit(amount)
	pool := e.store.Pool()
	pool.TotalFunds = safe.UAdd(pool.TotalFunds, amount)

	slog.Info("Deposit",
		slog.String("account", string(caller)),
		slog.Uint64("amount", amount),
		slog.Uint64("total_funds", pool.TotalFunds))
	return nil
}

// WithdrawFunds debits the caller's account and the fund pool.
func (e *Engine) WithdrawFunds(ctx context.Context, caller domain.Identity, block uint64, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Non-creating lookup: a rejected withdrawal must not leave a zero
	// account behind.
	acc, ok := e.store.Accounts().Lookup(caller)
	if !ok || acc.Amount < amount {
		return domain.ErrInsufficientFunds
	}

	e.commit(ctx, &event.WithdrawEvent{
		BaseEvent: event.BaseEvent{Seq: e.nextSeq, Block: block},
		Account:   caller,
		Amount:    amount,
	})

	acc.Debit(amount)
	pool := e.store.Pool()
	pool.TotalFunds = safe.USub(pool.TotalFunds, amount)

	slog.Info("Withdrawal",
		slog.String("account", string(caller)),
		slog.Uint64("amount", amount),
		slog.Uint64("total_funds", pool.TotalFunds))
	return nil
}

// AuthorizeOperator grants an identity the right to submit proposals.
func (e *Engine) AuthorizeOperator(ctx context.Context, caller domain.Identity, block uint64, op domain.Identity) error {
	return e.toggleOperator(ctx, caller, block, op, true)
}

// RevokeOperator removes an identity's proposal rights.
func (e *Engine) RevokeOperator(ctx context.Context, caller domain.Identity, block uint64, op domain.Identity) error {
	return e.toggleOperator(ctx, caller, block, op, false)
}

func (e *Engine) toggleOperator(ctx context.Context, caller domain.Identity, block uint64, op domain.Identity, authorized bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return domain.ErrOwnerOnly
	}

	e.commit(ctx, &event.OperatorToggledEvent{
		BaseEvent:  event.BaseEvent{Seq: e.nextSeq, Block: block},
		Operator:   op,
		Authorized: authorized,
	})

	e.store.SetOperator(op, authorized)
	slog.Info("Operator toggled",
		slog.String("operator", string(op)),
		slog.Bool("authorized", authorized))
	return nil
}

// PauseBot flips the manual kill switch off. The breaker flag is untouched.
func (e *Engine) PauseBot(ctx context.Context, caller domain.Identity, block uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return domain.ErrOwnerOnly
	}

	state := e.store.State()

	e.commit(ctx, &event.BotControlEvent{
		BaseEvent:     event.BaseEvent{Seq: e.nextSeq, Block: block},
		Active:        false,
		BreakerActive: state.CircuitBreakerActive,
	})

	state.BotActive = false
	slog.Info("Bot paused by owner")
	return nil
}

// ResumeBot re-enables trading and clears the circuit breaker. This is the
// only path that resets a tripped breaker.
func (e *Engine) ResumeBot(ctx context.Context, caller domain.Identity, block uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return domain.ErrOwnerOnly
	}

	e.commit(ctx, &event.BotControlEvent{
		BaseEvent:     event.BaseEvent{Seq: e.nextSeq, Block: block},
		Active:        true,
		BreakerActive: false,
	})

	state := e.store.State()
	state.BotActive = true
	state.CircuitBreakerActive = false
	e.monitor.Reset()

	slog.Info("Bot resumed by owner (breaker cleared)")
	return nil
}

// UpdateModelVersion points the engine at a new prediction model. Metrics for
// the new version start accumulating on its first settled trade.
func (e *Engine) UpdateModelVersion(ctx context.Context, caller domain.Identity, block uint64, version uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return domain.ErrOwnerOnly
	}

	e.commit(ctx, &event.ModelUpdateEvent{
		BaseEvent: event.BaseEvent{Seq: e.nextSeq, Block: block},
		Version:   version,
	})

	e.store.State().CurrentModelVersion = version
	slog.Info("Model version updated", slog.Uint64("version", version))
	return nil
}

// PoolTotals returns a copy of the fund pool scalars.
func (e *Engine) PoolTotals() domain.FundPool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.PoolTotals()
}

// Operational returns a copy of the control flags and counters.
func (e *Engine) Operational() domain.OperationalState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Operational()
}

// TradeByID returns the immutable record for a settled trade.
func (e *Engine) TradeByID(id uint64) (domain.TradeRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.TradeByID(id)
}

// ModelMetrics returns the aggregate for a model version.
func (e *Engine) ModelMetrics(version uint64) (domain.ModelMetrics, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Get(version)
}

// Balance returns a depositor's current balance, zero for an identity that
// has never deposited. Reads never create account entries.
func (e *Engine) Balance(id domain.Identity) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if acc, ok := e.store.Accounts().Lookup(id); ok {
		return acc.Amount
	}
	return 0
}

// Snapshot captures the full ledger state for the snapshot manager.
func (e *Engine) Snapshot() *storage.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return storage.NewSnapshot(
		e.nextSeq-1,
		e.store.PoolTotals(),
		e.store.Operational(),
		e.store.Accounts().Snapshot(),
		e.store.OperatorRegistry(),
		e.store.TradeHistory(),
		e.tracker.Snapshot(),
	)
}
