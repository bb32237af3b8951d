// Package store is the account ledger: the durable state of wallets,
// holdings, orders, and transaction records. Implementations include
// PostgreSQL (source of truth), Redis (read-through cache), and in-memory
// (for testing).
//
// Balances and holdings are mutated only by the trade engine and the
// wallet operations, and only while holding the account's lock from
// AccountLocks. Holdings have no standalone write methods; they change
// solely through ApplyExecution, so there is no second write path that
// could bypass the engine's atomicity.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
)

// ErrNotFound is wrapped by lookups for accounts, holdings, and orders
// that do not exist.
var ErrNotFound = errors.New("store: not found")

// ExecutionUpdate is the full state transition of one completed order.
// A store applies it atomically: balance, holding, order status, and the
// transaction record all become visible together or not at all.
type ExecutionUpdate struct {
	AccountID  string
	NewBalance decimal.Decimal

	// Holding carries the post-trade position. Quantity 0 means the
	// position closed and the row is deleted rather than kept at zero.
	Holding model.Holding

	// Order is the completed order with execution price and commission set.
	Order model.Order

	// Transaction is the immutable ledger record for this execution.
	Transaction model.Transaction
}

// Store is the persistence interface for the account ledger.
type Store interface {
	// --- Accounts ---

	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, account *model.Account) error

	// GetAccount retrieves an account by ID.
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// UpdateAccountBalance sets an account's cash balance. Used by the
	// wallet deposit/withdraw operations, under the account lock.
	UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// --- Holdings (read-only; mutation goes through ApplyExecution) ---

	// GetHolding retrieves one position, or ErrNotFound when the account
	// holds none of the symbol.
	GetHolding(ctx context.Context, accountID, sym string) (*model.Holding, error)

	// ListHoldings returns all positions for an account.
	ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error)

	// --- Orders (append-only audit of attempted executions) ---

	// InsertOrder persists a new PENDING order.
	InsertOrder(ctx context.Context, order *model.Order) error

	// MarkOrderFailed moves an order to its terminal FAILED status with
	// the specific reason. No ledger state changes.
	MarkOrderFailed(ctx context.Context, orderID, reason string) error

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)

	// ListOrdersByAccount returns all orders for an account, oldest first.
	ListOrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error)

	// --- Execution ---

	// ApplyExecution applies a completed order's state transition as one
	// atomic unit.
	ApplyExecution(ctx context.Context, up *ExecutionUpdate) error

	// --- Immutable transaction records ---

	// ListTransactionsByAccount returns all transaction records for an
	// account, oldest first.
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]model.Transaction, error)
}
