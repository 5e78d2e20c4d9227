// Package event defines the audit events persisted WAL-first for every
// committed ledger mutation. The log is append-only; replaying it from
// genesis reconstructs the full ledger state.
package event

import (
	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvTradeSettled Type = iota + 1
	EvDeposit
	EvWithdraw
	EvOperatorToggled
	EvBotControl
	EvModelUpdate
)

// Event is the interface for all audit events.
type Event interface {
	GetSeq() uint64
	GetBlock() uint64
	GetType() Type
}

// BaseEvent contains common fields for all events.
// Seq is the audit-log position; Block is the logical clock the caller
// supplied for the operation.
type BaseEvent struct {
	Seq   uint64 `json:"seq"`
	Block uint64 `json:"block"`
}

func (e BaseEvent) GetSeq() uint64   { return e.Seq }
func (e BaseEvent) GetBlock() uint64 { return e.Block }

// TradeSettledEvent records one committed settlement. The full trade record
// is embedded so replay never re-runs the outcome simulation.
type TradeSettledEvent struct {
	BaseEvent
	Operator domain.Identity    `json:"operator"`
	Record   domain.TradeRecord `json:"record"`
}

func (e TradeSettledEvent) GetType() Type { return EvTradeSettled }

// DepositEvent records a credit to a depositor account and the pool.
type DepositEvent struct {
	BaseEvent
	Account domain.Identity `json:"account"`
	Amount  uint64          `json:"amount"`
}

func (e DepositEvent) GetType() Type { return EvDeposit }

// WithdrawEvent records a debit from a depositor account and the pool.
type WithdrawEvent struct {
	BaseEvent
	Account domain.Identity `json:"account"`
	Amount  uint64          `json:"amount"`
}

func (e WithdrawEvent) GetType() Type { return EvWithdraw }

// OperatorToggledEvent records an owner grant or revoke of an operator.
type OperatorToggledEvent struct {
	BaseEvent
	Operator   domain.Identity `json:"operator"`
	Authorized bool            `json:"authorized"`
}

func (e OperatorToggledEvent) GetType() Type { return EvOperatorToggled }

// BotControlEvent records an owner pause or resume. Resume also clears the
// circuit breaker, so the resulting breaker flag is captured.
type BotControlEvent struct {
	BaseEvent
	Active        bool `json:"active"`
	BreakerActive bool `json:"breaker_active"`
}

func (e BotControlEvent) GetType() Type { return EvBotControl }

// ModelUpdateEvent records an owner switch of the active model version.
type ModelUpdateEvent struct {
	BaseEvent
	Version uint64 `json:"version"`
}

func (e ModelUpdateEvent) GetType() Type { return EvModelUpdate }
