package domain

import (
	"github.com/shopspring/decimal"
)

// ModelMetrics is the rolling performance aggregate for one model version.
// AverageConfidence is a truncating running mean: each update computes
// (avg*n + confidence) / (n+1) in integer arithmetic, so rounding error
// compounds over many updates. Known approximation, kept as-is because
// changing the arithmetic changes observable output.
type ModelMetrics struct {
	Version               uint64 `json:"version"`
	TotalPredictions      uint64 `json:"total_predictions"`
	SuccessfulPredictions uint64 `json:"successful_predictions"`
	AverageConfidence     uint64 `json:"average_confidence"`
	TotalProfit           int64  `json:"total_profit"`
}

// SuccessRate returns successful/total as an exact decimal, 0 when no
// predictions have settled. Reporting only, never fed back into accounting.
func (m *ModelMetrics) SuccessRate() decimal.Decimal {
	if m.TotalPredictions == 0 {
		return decimal.Zero
	}
	return decimal.NewFromUint64(m.SuccessfulPredictions).
		Div(decimal.NewFromUint64(m.TotalPredictions))
}
