package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the holdings list, the hot read on the account snapshot path.
// Writes go to the primary store and invalidate the cache.
//
// Account balance reads always pass through to the primary. The engine
// re-reads the balance under the account lock as the authoritative check,
// and a read-through cache can be re-populated with a stale value by a
// display read racing a write. Holdings list staleness only affects the
// advisory snapshot, which is never the final word.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) error {
	return s.primary.CreateAccount(ctx, a)
}

func (s *CachedStore) UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return s.primary.UpdateAccountBalance(ctx, id, balance)
}

func (s *CachedStore) ApplyExecution(ctx context.Context, up *ExecutionUpdate) error {
	if err := s.primary.ApplyExecution(ctx, up); err != nil {
		return err
	}
	s.rdb.Del(ctx, holdingsKey(up.AccountID))
	return nil
}

func (s *CachedStore) InsertOrder(ctx context.Context, o *model.Order) error {
	return s.primary.InsertOrder(ctx, o)
}

func (s *CachedStore) MarkOrderFailed(ctx context.Context, orderID, reason string) error {
	return s.primary.MarkOrderFailed(ctx, orderID, reason)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	data, err := s.rdb.Get(ctx, holdingsKey(accountID)).Bytes()
	if err == nil {
		var holdings []model.Holding
		if json.Unmarshal(data, &holdings) == nil {
			return holdings, nil
		}
	}

	holdings, err := s.primary.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(holdings); err == nil {
		s.rdb.Set(ctx, holdingsKey(accountID), data, s.ttl)
	}
	return holdings, nil
}

// --- Passthrough (not cached) ---

// GetAccount and GetHolding back the authoritative under-lock re-reads, so
// they always go to the primary.
func (s *CachedStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return s.primary.GetAccount(ctx, id)
}

func (s *CachedStore) GetHolding(ctx context.Context, accountID, sym string) (*model.Holding, error) {
	return s.primary.GetHolding(ctx, accountID, sym)
}

func (s *CachedStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, orderID)
}

func (s *CachedStore) ListOrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	return s.primary.ListOrdersByAccount(ctx, accountID)
}

func (s *CachedStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]model.Transaction, error) {
	return s.primary.ListTransactionsByAccount(ctx, accountID)
}

func holdingsKey(accountID string) string { return fmt.Sprintf("holdings:%s", accountID) }
