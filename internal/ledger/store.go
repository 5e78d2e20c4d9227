// Package ledger holds the authoritative in-memory ledger state. The store
// is injected into the engine rather than living in package globals, so
// tests can build arbitrary states and every read/write path is explicit.
package ledger

import (
	"fmt"

	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
)

// Store owns all durable ledger entities: the fund pool, depositor accounts,
// the operator registry, operational flags and the trade history.
// Not safe for concurrent use; the engine serializes all access.
type Store struct {
	pool      domain.FundPool
	state     domain.OperationalState
	accounts  *domain.AccountBook
	operators map[domain.Identity]bool
	trades    map[uint64]domain.TradeRecord
}

// NewStore creates a store in the genesis state.
func NewStore() *Store {
	return &Store{
		state:     domain.NewOperationalState(),
		accounts:  domain.NewAccountBook(),
		operators: make(map[domain.Identity]bool),
		trades:    make(map[uint64]domain.TradeRecord),
	}
}

// Pool returns the mutable fund pool. Engine-only write path.
func (s *Store) Pool() *domain.FundPool {
	return &s.pool
}

// PoolTotals returns a copy of the pool scalars for external reads.
func (s *Store) PoolTotals() domain.FundPool {
	return s.pool
}

// State returns the mutable operational state. Engine-only write path.
func (s *Store) State() *domain.OperationalState {
	return &s.state
}

// Operational returns a copy of the control flags for external reads.
func (s *Store) Operational() domain.OperationalState {
	return s.state
}

// Accounts returns the depositor account book.
func (s *Store) Accounts() *domain.AccountBook {
	return s.accounts
}

// IsOperator reports whether an identity is an authorized operator.
// Unknown identities default to false.
func (s *Store) IsOperator(id domain.Identity) bool {
	return s.operators[id]
}

// SetOperator toggles an identity's operator authorization.
func (s *Store) SetOperator(id domain.Identity, authorized bool) {
	s.operators[id] = authorized
}

// AppendTrade writes a trade record. Records are write-once: a duplicate id
// means the trade counter was corrupted, which is unrecoverable.
func (s *Store) AppendTrade(rec domain.TradeRecord) {
	if _, exists := s.trades[rec.ID]; exists {
		panic(fmt.Sprintf("TRADE_RECORD_OVERWRITE: id %d already settled", rec.ID))
	}
	s.trades[rec.ID] = rec
}

// TradeByID returns the trade record for an id, copy-out.
func (s *Store) TradeByID(id uint64) (domain.TradeRecord, bool) {
	rec, ok := s.trades[id]
	return rec, ok
}

// TradeHistory returns a deep copy of all settled trades.
func (s *Store) TradeHistory() map[uint64]domain.TradeRecord {
	out := make(map[uint64]domain.TradeRecord, len(s.trades))
	for id, rec := range s.trades {
		out[id] = rec
	}
	return out
}

// OperatorRegistry returns a deep copy of the operator map.
func (s *Store) OperatorRegistry() map[domain.Identity]bool {
	out := make(map[domain.Identity]bool, len(s.operators))
	for id, ok := range s.operators {
		out[id] = ok
	}
	return out
}

// Restore replaces the entire store contents from snapshot data.
func (s *Store) Restore(
	pool domain.FundPool,
	state domain.OperationalState,
	accounts map[domain.Identity]domain.Account,
	operators map[domain.Identity]bool,
	trades map[uint64]domain.TradeRecord,
) {
	s.pool = pool
	s.state = state
	s.accounts.Restore(accounts)
	s.operators = make(map[domain.Identity]bool, len(operators))
	for id, ok := range operators {
		s.operators[id] = ok
	}
	s.trades = make(map[uint64]domain.TradeRecord, len(trades))
	for id, rec := range trades {
		s.trades[id] = rec
	}
}
