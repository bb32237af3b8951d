package store

import "sync"

// AccountLocks is the registry of per-account exclusive locks, the sole
// concurrency primitive of the ledger. Every mutating operation on an
// account (order execution, deposit, withdrawal) holds that account's lock
// from before its state re-read until its writes are applied. Unrelated
// accounts proceed in parallel; there is no global lock and no
// optimistic retry.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocks creates an empty lock registry.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the exclusive lock for an account, creating it on first
// use. Blocks while another operation on the same account is mid-flight.
func (l *AccountLocks) Lock(accountID string) {
	l.get(accountID).Lock()
}

// Unlock releases the account's lock.
func (l *AccountLocks) Unlock(accountID string) {
	l.get(accountID).Unlock()
}

func (l *AccountLocks) get(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}
