package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*model.Account
	holdings     map[string]map[string]*model.Holding // accountID → symbol → holding
	orders       map[string]*model.Order
	orderIDs     map[string][]string // accountID → order IDs, insertion order
	transactions []model.Transaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		holdings: make(map[string]map[string]*model.Holding),
		orders:   make(map[string]*model.Order),
		orderIDs: make(map[string][]string),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return fmt.Errorf("account %s already exists", a.ID)
	}

	// Store a copy to avoid external mutation.
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) UpdateAccountBalance(_ context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	a.CashBalance = balance
	return nil
}

func (s *MemoryStore) GetHolding(_ context.Context, accountID, sym string) (*model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[accountID][sym]
	if !ok {
		return nil, fmt.Errorf("holding %s/%s: %w", accountID, sym, ErrNotFound)
	}
	cp := *h
	return &cp, nil
}

func (s *MemoryStore) ListHoldings(_ context.Context, accountID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holdings []model.Holding
	for _, h := range s.holdings[accountID] {
		holdings = append(holdings, *h)
	}
	return holdings, nil
}

func (s *MemoryStore) InsertOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}

	cp := *o
	s.orders[o.ID] = &cp
	s.orderIDs[o.AccountID] = append(s.orderIDs[o.AccountID], o.ID)
	return nil
}

func (s *MemoryStore) MarkOrderFailed(_ context.Context, orderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if o.Status != model.StatusPending {
		return fmt.Errorf("order %s is already terminal (%s)", orderID, o.Status)
	}
	o.Status = model.StatusFailed
	o.FailureReason = reason
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOrdersByAccount(_ context.Context, accountID string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []model.Order
	for _, id := range s.orderIDs[accountID] {
		orders = append(orders, *s.orders[id])
	}
	return orders, nil
}

// ApplyExecution applies balance, holding, order, and transaction updates
// under a single lock so no partially applied execution is observable.
func (s *MemoryStore) ApplyExecution(_ context.Context, up *ExecutionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[up.AccountID]
	if !ok {
		return fmt.Errorf("account %s: %w", up.AccountID, ErrNotFound)
	}
	o, ok := s.orders[up.Order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", up.Order.ID, ErrNotFound)
	}
	if o.Status != model.StatusPending {
		return fmt.Errorf("order %s is already terminal (%s)", up.Order.ID, o.Status)
	}

	a.CashBalance = up.NewBalance

	if up.Holding.Quantity == 0 {
		// Closed position: delete rather than retain at zero, so a later
		// buy starts a fresh cost basis.
		delete(s.holdings[up.AccountID], up.Holding.Symbol)
	} else {
		if s.holdings[up.AccountID] == nil {
			s.holdings[up.AccountID] = make(map[string]*model.Holding)
		}
		h := up.Holding
		s.holdings[up.AccountID][h.Symbol] = &h
	}

	oc := up.Order
	s.orders[oc.ID] = &oc
	s.transactions = append(s.transactions, up.Transaction)
	return nil
}

func (s *MemoryStore) ListTransactionsByAccount(_ context.Context, accountID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			result = append(result, tx)
		}
	}
	return result, nil
}
