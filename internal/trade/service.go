// Package trade provides the HTTP handlers and the order execution engine:
// account and wallet operations, atomic buy/sell execution against the
// price oracle, and order/transaction history queries.
//
// All monetary values use shopspring/decimal, never float64.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
	"github.com/simvest/trade-engine/internal/pricing"
	"github.com/simvest/trade-engine/internal/store"
	"github.com/simvest/trade-engine/internal/validate"
)

// DefaultPriceTimeout bounds the oracle lookup inside the execution path,
// so no order can hold an account lock indefinitely.
const DefaultPriceTimeout = 2 * time.Second

// Service handles wallet operations and order execution. All mutating
// operations on an account are serialized through the per-account lock
// registry; unrelated accounts execute in parallel.
type Service struct {
	store        store.Store
	locks        *store.AccountLocks
	oracle       pricing.Oracle
	validator    *validate.Validator
	priceTimeout time.Duration
	wsHub        *WSHub // optional WebSocket hub for order event broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, locks *store.AccountLocks, oracle pricing.Oracle, v *validate.Validator, hub *WSHub) *Service {
	return &Service{
		store:        st,
		locks:        locks,
		oracle:       oracle,
		validator:    v,
		priceTimeout: DefaultPriceTimeout,
		wsHub:        hub,
	}
}

// --- Request/Response types ---

// CreateAccountRequest is the JSON body for account creation.
type CreateAccountRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AmountRequest is the JSON body for deposits and withdrawals.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse is returned from wallet operations.
type BalanceResponse struct {
	AccountID   string          `json:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
}

// OrderRequest is the JSON body for POST /orders.
type OrderRequest struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`     // "BUY" or "SELL"
	Quantity  int64  `json:"quantity"` // whole shares, positive
}

// OrderResult is the definitive outcome returned for every submitted order.
type OrderResult struct {
	OrderID        string          `json:"order_id"`
	AccountID      string          `json:"account_id"`
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Quantity       int64           `json:"quantity"`
	Status         string          `json:"status"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	Commission     decimal.Decimal `json:"commission"`
	CashDelta      decimal.Decimal `json:"cash_delta"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}

// --- HTTP Handlers ---

// CreateAccount handles POST /api/v1/accounts
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OpeningBalance.IsNegative() {
		writeError(w, "opening balance must not be negative", http.StatusBadRequest)
		return
	}

	account := &model.Account{
		ID:          uuid.New().String(),
		CashBalance: req.OpeningBalance,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		writeError(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	slog.Info("account created", "id", account.ID, "opening_balance", account.CashBalance.String())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// GetAccount handles GET /api/v1/accounts/{accountID}
// Returns the snapshot of cash balance and holdings used for display.
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	snap, err := s.snapshot(r, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "account not found", http.StatusNotFound)
		} else {
			writeError(w, "failed to load account", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// Deposit handles POST /api/v1/accounts/{accountID}/deposit
// Routed through the same per-account lock as order execution, so there is
// no second unsynchronized write path to the wallet.
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	s.adjustBalance(w, r, false)
}

// Withdraw handles POST /api/v1/accounts/{accountID}/withdraw
// Rejected if it would take the balance below zero.
func (s *Service) Withdraw(w http.ResponseWriter, r *http.Request) {
	s.adjustBalance(w, r, true)
}

func (s *Service) adjustBalance(w http.ResponseWriter, r *http.Request, withdraw bool) {
	accountID := chi.URLParam(r, "accountID")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "account not found", http.StatusNotFound)
		} else {
			writeError(w, "failed to load account", http.StatusInternalServerError)
		}
		return
	}

	newBalance := account.CashBalance.Add(req.Amount)
	if withdraw {
		newBalance = account.CashBalance.Sub(req.Amount)
		if newBalance.IsNegative() {
			writeError(w, "insufficient funds", http.StatusConflict)
			return
		}
	}

	if err := s.store.UpdateAccountBalance(ctx, accountID, newBalance); err != nil {
		writeError(w, "failed to update balance", http.StatusInternalServerError)
		return
	}

	op := "deposit"
	if withdraw {
		op = "withdrawal"
	}
	slog.Info("wallet updated",
		"account", accountID,
		"op", op,
		"amount", req.Amount.String(),
		"balance", newBalance.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BalanceResponse{AccountID: accountID, CashBalance: newBalance})
}

// SubmitOrder handles POST /api/v1/orders
// Validates, persists the order, executes it atomically, and returns the
// definitive result. COMPLETED → 200; FAILED → 409 with the full result.
func (s *Service) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))

	if req.AccountID == "" {
		writeError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	// Static checks: no order record is created for malformed input.
	if err := s.validator.CheckStatic(req.Symbol, req.Side, req.Quantity); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	snap, err := s.snapshot(r, req.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "account not found", http.StatusNotFound)
		} else {
			writeError(w, "failed to load account", http.StatusInternalServerError)
		}
		return
	}

	// From here on every attempt is audited: the order row is created
	// before any advisory or authoritative check can fail it.
	order := &model.Order{
		ID:        uuid.New().String(),
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		writeError(w, "failed to record order", http.StatusInternalServerError)
		return
	}

	// The order row now exists and must reach a terminal status even if
	// the caller disconnects or the request times out mid-execution.
	// Execution runs detached from the request's cancellation; the price
	// lookup keeps its own bounded timeout.
	execCtx := context.WithoutCancel(ctx)

	// Advisory pre-check with the most recently observed price: a cheap
	// early exit before taking the lock, never the final word.
	if result, rejected := s.advisoryCheck(execCtx, order, snap); rejected {
		writeResult(w, result)
		return
	}

	result := s.execute(execCtx, order)

	if result.Status == model.StatusCompleted && s.wsHub != nil {
		// Outside the atomicity boundary: delivery failure never rolls
		// back the execution.
		s.wsHub.Broadcast(WSMessage{
			Type:         "order_completed",
			OrderID:      result.OrderID,
			AccountID:    result.AccountID,
			Symbol:       result.Symbol,
			Side:         result.Side,
			Quantity:     result.Quantity,
			Price:        result.ExecutionPrice.String(),
			Commission:   result.Commission.String(),
			BalanceAfter: result.BalanceAfter.String(),
		})
	}

	writeResult(w, result)
}

// GetOrders handles GET /api/v1/accounts/{accountID}/orders
// Returns the append-only audit of attempted executions, oldest first.
func (s *Service) GetOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	orders, err := s.store.ListOrdersByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetTransactions handles GET /api/v1/accounts/{accountID}/transactions
// Returns the immutable ledger records, oldest first.
func (s *Service) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	txs, err := s.store.ListTransactionsByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

// snapshot loads the display view of an account: balance plus holdings.
func (s *Service) snapshot(r *http.Request, accountID string) (*model.AccountSnapshot, error) {
	ctx := r.Context()

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.store.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []model.Holding{}
	}

	return &model.AccountSnapshot{
		AccountID:   account.ID,
		CashBalance: account.CashBalance,
		Holdings:    holdings,
	}, nil
}

// writeResult maps an order outcome to its HTTP status: completed orders
// return 200, failed ones 409 with the full result so the caller can
// correct and resubmit.
func writeResult(w http.ResponseWriter, result OrderResult) {
	status := http.StatusOK
	if result.Status == model.StatusFailed {
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
