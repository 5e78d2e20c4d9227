// Package policy holds the pure risk predicates the execution engine applies
// to every trade proposal. All functions are stateless over a ledger snapshot
// so tests can drive them with literal numbers.
package policy

import (
	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
)

// PercentageOf computes (value * 100) / total in integer arithmetic,
// truncating toward zero. Panics when total is 0 (safe-math policy);
// callers guard the empty-pool case before calling.
func PercentageOf(value, total uint64) uint64 {
	return safe.UDiv(safe.UMul(value, 100), total)
}

// CooldownElapsed reports whether enough logical-clock ticks have passed
// since the last settlement.
func CooldownElapsed(lastTradeBlock, currentBlock, cooldownBlocks uint64) bool {
	return currentBlock >= safe.UAdd(lastTradeBlock, cooldownBlocks)
}

// ConfidenceSufficient reports whether the prediction source's self-reported
// certainty clears the floor.
func ConfidenceSufficient(score, minScore uint64) bool {
	return score >= minScore
}

// WithinSizeLimit reports whether the trade amount stays within maxPct of the
// pool. An empty pool is treated as 0% exposure: the funds-sufficiency check
// runs first, so the only amount that can reach this predicate with
// totalFunds == 0 is 0, and a zero-amount trade against an empty pool is
// allowed rather than divided by zero.
func WithinSizeLimit(amount, totalFunds, maxPct uint64) bool {
	if totalFunds == 0 {
		return true
	}
	return PercentageOf(amount, totalFunds) <= maxPct
}
