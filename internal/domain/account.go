package domain

import (
	"fmt"

	"github.com/JusticeK18/ArbitrageGuard/pkg/safe"
)

// Account tracks a single depositor's balance.
// Created on first deposit, never deleted; may sit at zero.
type Account struct {
	Owner  Identity `json:"owner"`
	Amount uint64   `json:"amount"`
}

// Credit adds funds to the account.
func (a *Account) Credit(amount uint64) {
	a.Amount = safe.UAdd(a.Amount, amount)
}

// Debit removes funds. Panics if the balance is insufficient: the engine
// checks availability before debiting, so reaching the panic means the
// sufficiency check was skipped.
func (a *Account) Debit(amount uint64) {
	if amount > a.Amount {
		panic(fmt.Sprintf("ACCOUNT_DEBIT_INSUFFICIENT: %s has %d, debit %d", a.Owner, a.Amount, amount))
	}
	a.Amount -= amount
}

// AccountBook is the registry of depositor accounts.
// Not safe for concurrent use; the engine serializes access.
type AccountBook struct {
	accounts map[Identity]*Account
}

// NewAccountBook creates an empty account book.
func NewAccountBook() *AccountBook {
	return &AccountBook{accounts: make(map[Identity]*Account)}
}

// Lookup returns the account for an identity without creating one.
// Read paths and precondition checks use this so a rejected or read-only
// operation never adds entries to the book.
func (b *AccountBook) Lookup(id Identity) (*Account, bool) {
	acc, ok := b.accounts[id]
	return acc, ok
}

// Get returns the account for an identity, creating it lazily. Only the
// deposit path may call this; accounts exist from first deposit onward.
func (b *AccountBook) Get(id Identity) *Account {
	acc, ok := b.accounts[id]
	if !ok {
		acc = &Account{Owner: id}
		b.accounts[id] = acc
	}
	return acc
}

// TotalHeld sums all account balances. Deposits and withdrawals keep this in
// lockstep with FundPool.TotalFunds; the invariant is checked, not assumed.
func (b *AccountBook) TotalHeld() uint64 {
	var total uint64
	for _, acc := range b.accounts {
		total = safe.UAdd(total, acc.Amount)
	}
	return total
}

// Snapshot returns a deep copy of all accounts.
func (b *AccountBook) Snapshot() map[Identity]Account {
	out := make(map[Identity]Account, len(b.accounts))
	for id, acc := range b.accounts {
		out[id] = *acc
	}
	return out
}

// Restore replaces the book contents from a snapshot.
func (b *AccountBook) Restore(snap map[Identity]Account) {
	b.accounts = make(map[Identity]*Account, len(snap))
	for id, acc := range snap {
		cp := acc
		b.accounts[id] = &cp
	}
}

// VerifyAgainstPool panics if the book total diverged from the pool total.
func (b *AccountBook) VerifyAgainstPool(pool *FundPool) {
	if held := b.TotalHeld(); held != pool.TotalFunds {
		panic(fmt.Sprintf("LEDGER_FUNDS_MISMATCH: accounts hold %d, pool says %d", held, pool.TotalFunds))
	}
}
