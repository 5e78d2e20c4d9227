// Package metrics maintains per-model-version performance aggregates,
// updated exactly once per settled trade.
package metrics

import (
	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
	"github.com/shopspring/decimal"
)

// Tracker holds the rolling aggregates. Created lazily per version on the
// first trade settled against it; never deleted.
// Not safe for concurrent use; the engine serializes all access.
type Tracker struct {
	models map[uint64]*domain.ModelMetrics
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{models: make(map[uint64]*domain.ModelMetrics)}
}

// Update folds one settled trade into the aggregate for modelVersion.
// The confidence average is a truncating running mean:
// (avg*n + confidence) / (n+1) in integer arithmetic. Truncation compounds
// over many updates; kept as the observable behavior, not corrected.
func (t *Tracker) Update(modelVersion uint64, success bool, confidence uint64, profit int64) {
	m, ok := t.models[modelVersion]
	if !ok {
		m = &domain.ModelMetrics{Version: modelVersion}
		t.models[modelVersion] = m
	}

	weighted := safe.UAdd(safe.UMul(m.AverageConfidence, m.TotalPredictions), confidence)
	m.TotalPredictions = safe.UAdd(m.TotalPredictions, 1)
	m.AverageConfidence = safe.UDiv(weighted, m.TotalPredictions)

	if success {
		m.SuccessfulPredictions = safe.UAdd(m.SuccessfulPredictions, 1)
	}
	m.TotalProfit = safe.Add(m.TotalProfit, profit)
}

// Get returns the aggregate for a version, copy-out. The zero aggregate is
// returned for versions that have never settled a trade.
func (t *Tracker) Get(modelVersion uint64) (domain.ModelMetrics, bool) {
	m, ok := t.models[modelVersion]
	if !ok {
		return domain.ModelMetrics{Version: modelVersion}, false
	}
	return *m, true
}

// Snapshot returns a deep copy of all aggregates.
func (t *Tracker) Snapshot() map[uint64]domain.ModelMetrics {
	out := make(map[uint64]domain.ModelMetrics, len(t.models))
	for v, m := range t.models {
		out[v] = *m
	}
	return out
}

// Restore replaces the tracker contents from a snapshot.
func (t *Tracker) Restore(snap map[uint64]domain.ModelMetrics) {
	t.models = make(map[uint64]*domain.ModelMetrics, len(snap))
	for v, m := range snap {
		cp := m
		t.models[v] = &cp
	}
}

// SuccessRate returns the exact success ratio for a version as a decimal.
// Reporting only.
func (t *Tracker) SuccessRate(modelVersion uint64) decimal.Decimal {
	m, ok := t.models[modelVersion]
	if !ok {
		return decimal.Zero
	}
	return m.SuccessRate()
}
