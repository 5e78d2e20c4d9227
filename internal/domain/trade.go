package domain

// TradeProposal is a trade submitted by the off-chain prediction source.
// Confidence is an integer 0-100, the source's self-reported certainty.
type TradeProposal struct {
	Amount          uint64 `json:"amount"`
	PredictedProfit uint64 `json:"predicted_profit"`
	Confidence      uint64 `json:"confidence"`
	Source          string `json:"source"`
	Target          string `json:"target"`
}

// TradeRecord is the immutable audit entry for one settled trade.
// Written exactly once, never mutated or deleted.
type TradeRecord struct {
	ID              uint64 `json:"id"`
	Amount          uint64 `json:"amount"`
	PredictedProfit uint64 `json:"predicted_profit"`
	ActualProfit    int64  `json:"actual_profit"`
	Confidence      uint64 `json:"confidence"`
	ModelVersion    uint64 `json:"model_version"`
	LogicalBlock    uint64 `json:"logical_block"`
	Success         bool   `json:"success"`
}

// TradeResult is what SettleTrade returns to the caller.
type TradeResult struct {
	TradeID          uint64 `json:"trade_id"`
	Executed         bool   `json:"executed"`
	Profit           int64  `json:"profit"`
	BreakerTriggered bool   `json:"breaker_triggered"`
}
