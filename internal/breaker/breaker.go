// Package breaker implements the automatic trading halt. Unlike a
// request-level circuit breaker there is no half-open probing: once the
// cumulative loss ratio trips the threshold the halt is sticky and only an
// explicit owner resume clears it, even if later deposits restore the ratio.
package breaker

import (
	"log/slog"

	"github.com/JusticeK18/ArbitrageGuard/internal/policy"
)

// State represents the breaker state.
type State int

const (
	StateClosed State = iota // Trading allowed
	StateOpen                // Trading halted until owner resume
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Monitor owns the trading-halt flag. Not safe for concurrent use; the
// engine serializes all access.
type Monitor struct {
	thresholdPct uint64
	state        State
}

// NewMonitor creates a monitor that trips when the loss ratio reaches
// thresholdPct percent of deposited funds.
func NewMonitor(thresholdPct uint64) *Monitor {
	return &Monitor{thresholdPct: thresholdPct, state: StateClosed}
}

// ShouldTrip reports whether the loss ratio has crossed the threshold.
// An empty pool has no exposure, so it never trips.
func (m *Monitor) ShouldTrip(totalLoss, totalFunds uint64) bool {
	if totalFunds == 0 {
		return false
	}
	return policy.PercentageOf(totalLoss, totalFunds) >= m.thresholdPct
}

// Evaluate re-checks the loss ratio after a settlement and trips the breaker
// if crossed. Returns the resulting active flag. A tripped breaker stays
// tripped regardless of the ratio (sticky).
func (m *Monitor) Evaluate(totalLoss, totalFunds uint64) bool {
	if m.state == StateOpen {
		return true
	}

	if m.ShouldTrip(totalLoss, totalFunds) {
		m.state = StateOpen
		slog.Warn("Circuit breaker OPEN (loss ratio crossed threshold)",
			slog.Uint64("total_loss", totalLoss),
			slog.Uint64("total_funds", totalFunds),
			slog.Uint64("threshold_pct", m.thresholdPct))
	}
	return m.state == StateOpen
}

// State returns the current state (for monitoring).
func (m *Monitor) State() State {
	return m.state
}

// Active reports whether trading is halted.
func (m *Monitor) Active() bool {
	return m.state == StateOpen
}

// Restore forces the breaker flag to a persisted value during recovery.
func (m *Monitor) Restore(active bool) {
	if active {
		m.state = StateOpen
	} else {
		m.state = StateClosed
	}
}

// Reset clears the halt. Only the owner resume path calls this.
func (m *Monitor) Reset() {
	if m.state == StateOpen {
		slog.Info("Circuit breaker RESET by owner resume")
	}
	m.state = StateClosed
}
