// Package model defines the core domain types shared across the trade engine.
// All monetary values use shopspring/decimal, never float64.
// Share quantities are whole numbers and use int64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order statuses. PENDING transitions exactly once to COMPLETED or FAILED
// and is never re-opened.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Failure reasons recorded on a FAILED order.
const (
	ReasonEstimatedInsufficientFunds  = "ESTIMATED_INSUFFICIENT_FUNDS"
	ReasonEstimatedInsufficientShares = "ESTIMATED_INSUFFICIENT_SHARES"
	ReasonInsufficientFunds           = "INSUFFICIENT_FUNDS"
	ReasonInsufficientShares          = "INSUFFICIENT_SHARES"
	ReasonPriceUnavailable            = "PRICE_UNAVAILABLE"
	ReasonSystemError                 = "SYSTEM_ERROR"
)

// Account is one participant's wallet. CashBalance is never negative at any
// externally observable instant; it is mutated only under the account lock.
type Account struct {
	ID          string          `json:"id" db:"id"`
	CashBalance decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Holding is a position in one symbol, keyed by (account, symbol).
// Quantity is always positive while the holding exists; a position that
// reaches zero is deleted so a later buy starts a fresh cost basis.
type Holding struct {
	AccountID   string          `json:"account_id" db:"account_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Quantity    int64           `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost" db:"average_cost"` // volume-weighted purchase price
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Order is one submission. Orders double as the append-only audit trail of
// every attempted execution: completed and failed orders are both retained.
type Order struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"account_id" db:"account_id"`
	Symbol         string          `json:"symbol" db:"symbol"`
	Side           string          `json:"side" db:"side"`
	Quantity       int64           `json:"quantity" db:"quantity"`
	ExecutionPrice decimal.Decimal `json:"execution_price" db:"execution_price"` // filled in at execution
	Commission     decimal.Decimal `json:"commission" db:"commission"`
	Status         string          `json:"status" db:"status"`
	FailureReason  string          `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Transaction is an immutable ledger record, exactly one per COMPLETED
// order and none for a FAILED order. Never mutated or deleted.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	AccountID    string          `json:"account_id" db:"account_id"`
	OrderID      string          `json:"order_id" db:"order_id"`
	Side         string          `json:"side" db:"side"`
	Symbol       string          `json:"symbol" db:"symbol"`
	Quantity     int64           `json:"quantity" db:"quantity"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Commission   decimal.Decimal `json:"commission" db:"commission"`
	CashDelta    decimal.Decimal `json:"cash_delta" db:"cash_delta"` // signed: negative debit, positive credit
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl" db:"realized_pnl"` // sells only; reporting value
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// AccountSnapshot is a read-only view of a wallet and its holdings, served
// from the lock-free read path for display. Not used for the authoritative
// execution check, which re-reads under the account lock.
type AccountSnapshot struct {
	AccountID   string          `json:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Holdings    []Holding       `json:"holdings"`
}
