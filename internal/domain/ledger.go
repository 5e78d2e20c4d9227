package domain

import (
	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
)

// Identity addresses a participant: the owner, an operator, or a depositor.
type Identity string

// FundPool holds the pool-level accounting scalars.
// TotalFunds moves only on deposits and withdrawals; settled profit and loss
// are accumulated separately so the breaker can compute a loss ratio against
// the deposited capital.
type FundPool struct {
	TotalFunds  uint64 `json:"total_funds"`
	TotalProfit uint64 `json:"total_profit"`
	TotalLoss   uint64 `json:"total_loss"`
}

// RecordProfit accumulates a settled gain.
func (p *FundPool) RecordProfit(amount uint64) {
	p.TotalProfit = safe.UAdd(p.TotalProfit, amount)
}

// RecordLoss accumulates a settled loss.
func (p *FundPool) RecordLoss(amount uint64) {
	p.TotalLoss = safe.UAdd(p.TotalLoss, amount)
}

// OperationalState holds the engine's control flags and counters.
type OperationalState struct {
	BotActive            bool   `json:"bot_active"`
	CircuitBreakerActive bool   `json:"circuit_breaker_active"`
	LastTradeBlock       uint64 `json:"last_trade_block"`
	CurrentModelVersion  uint64 `json:"current_model_version"`
	TradeCount           uint64 `json:"trade_count"`
}

// NewOperationalState returns the genesis control state: bot live, breaker
// clear, no trades settled, model version 1 active.
func NewOperationalState() OperationalState {
	return OperationalState{
		BotActive:           true,
		CurrentModelVersion: 1,
	}
}
