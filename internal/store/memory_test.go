package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func seedAccount(t *testing.T, s *MemoryStore, id, balance string) {
	t.Helper()
	err := s.CreateAccount(context.Background(), &model.Account{
		ID:          id,
		CashBalance: d(balance),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestMemoryStore_Accounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "1000.00")

	a, err := s.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !a.CashBalance.Equal(d("1000.00")) {
		t.Errorf("balance = %s, want 1000.00", a.CashBalance)
	}

	// Returned value is a copy; mutating it must not leak into the store.
	a.CashBalance = d("0")
	again, _ := s.GetAccount(ctx, "a1")
	if !again.CashBalance.Equal(d("1000.00")) {
		t.Error("GetAccount should return a copy")
	}

	if err := s.CreateAccount(ctx, &model.Account{ID: "a1"}); err == nil {
		t.Error("duplicate CreateAccount should fail")
	}

	if _, err := s.GetAccount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing account = %v, want ErrNotFound", err)
	}

	if err := s.UpdateAccountBalance(ctx, "a1", d("500.00")); err != nil {
		t.Fatalf("UpdateAccountBalance: %v", err)
	}
	a, _ = s.GetAccount(ctx, "a1")
	if !a.CashBalance.Equal(d("500.00")) {
		t.Errorf("balance after update = %s, want 500.00", a.CashBalance)
	}

	if err := s.UpdateAccountBalance(ctx, "missing", d("1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing account = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_OrderLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "1000.00")

	ord := &model.Order{
		ID:        "o1",
		AccountID: "a1",
		Symbol:    "AAPL",
		Side:      model.SideBuy,
		Quantity:  10,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertOrder(ctx, ord); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}

	if err := s.MarkOrderFailed(ctx, "o1", model.ReasonPriceUnavailable); err != nil {
		t.Fatalf("MarkOrderFailed: %v", err)
	}

	got, _ := s.GetOrder(ctx, "o1")
	if got.Status != model.StatusFailed || got.FailureReason != model.ReasonPriceUnavailable {
		t.Errorf("order = %s/%s, want FAILED/PRICE_UNAVAILABLE", got.Status, got.FailureReason)
	}

	// Terminal statuses never transition again.
	if err := s.MarkOrderFailed(ctx, "o1", model.ReasonSystemError); err == nil {
		t.Error("re-failing a terminal order should error")
	}
}

func execUpdate(orderID string, qty int64) *ExecutionUpdate {
	now := time.Now().UTC()
	return &ExecutionUpdate{
		AccountID:  "a1",
		NewBalance: d("8498.50"),
		Holding: model.Holding{
			AccountID:   "a1",
			Symbol:      "AAPL",
			Quantity:    qty,
			AverageCost: d("150.00"),
			UpdatedAt:   now,
		},
		Order: model.Order{
			ID:             orderID,
			AccountID:      "a1",
			Symbol:         "AAPL",
			Side:           model.SideBuy,
			Quantity:       10,
			ExecutionPrice: d("150.00"),
			Commission:     d("1.50"),
			Status:         model.StatusCompleted,
			CreatedAt:      now,
		},
		Transaction: model.Transaction{
			ID:           "t-" + orderID,
			AccountID:    "a1",
			OrderID:      orderID,
			Side:         model.SideBuy,
			Symbol:       "AAPL",
			Quantity:     10,
			Price:        d("150.00"),
			Commission:   d("1.50"),
			CashDelta:    d("-1501.50"),
			BalanceAfter: d("8498.50"),
			Timestamp:    now,
		},
	}
}

func TestMemoryStore_ApplyExecution(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "10000.00")

	ord := &model.Order{ID: "o1", AccountID: "a1", Symbol: "AAPL", Side: model.SideBuy, Quantity: 10, Status: model.StatusPending}
	if err := s.InsertOrder(ctx, ord); err != nil {
		t.Fatal(err)
	}

	if err := s.ApplyExecution(ctx, execUpdate("o1", 10)); err != nil {
		t.Fatalf("ApplyExecution: %v", err)
	}

	a, _ := s.GetAccount(ctx, "a1")
	if !a.CashBalance.Equal(d("8498.50")) {
		t.Errorf("balance = %s, want 8498.50", a.CashBalance)
	}

	h, err := s.GetHolding(ctx, "a1", "AAPL")
	if err != nil {
		t.Fatalf("GetHolding: %v", err)
	}
	if h.Quantity != 10 || !h.AverageCost.Equal(d("150.00")) {
		t.Errorf("holding = %d @ %s, want 10 @ 150.00", h.Quantity, h.AverageCost)
	}

	o, _ := s.GetOrder(ctx, "o1")
	if o.Status != model.StatusCompleted {
		t.Errorf("order status = %s, want COMPLETED", o.Status)
	}

	txs, _ := s.ListTransactionsByAccount(ctx, "a1")
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if !txs[0].CashDelta.Equal(d("-1501.50")) {
		t.Errorf("cash delta = %s, want -1501.50", txs[0].CashDelta)
	}
}

func TestMemoryStore_ApplyExecution_ZeroQuantityDeletesHolding(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "10000.00")

	if err := s.InsertOrder(ctx, &model.Order{ID: "o1", AccountID: "a1", Status: model.StatusPending}); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyExecution(ctx, execUpdate("o1", 10)); err != nil {
		t.Fatal(err)
	}

	if err := s.InsertOrder(ctx, &model.Order{ID: "o2", AccountID: "a1", Status: model.StatusPending}); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyExecution(ctx, execUpdate("o2", 0)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetHolding(ctx, "a1", "AAPL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("closed holding = %v, want ErrNotFound", err)
	}

	holdings, _ := s.ListHoldings(ctx, "a1")
	if len(holdings) != 0 {
		t.Errorf("expected no holdings, got %d", len(holdings))
	}
}

func TestMemoryStore_ApplyExecution_TerminalOrderRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "10000.00")

	if err := s.InsertOrder(ctx, &model.Order{ID: "o1", AccountID: "a1", Status: model.StatusPending}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkOrderFailed(ctx, "o1", model.ReasonSystemError); err != nil {
		t.Fatal(err)
	}

	if err := s.ApplyExecution(ctx, execUpdate("o1", 10)); err == nil {
		t.Error("ApplyExecution on a terminal order should fail")
	}
}

func TestMemoryStore_ListOrdersInInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedAccount(t, s, "a1", "1000.00")

	for _, id := range []string{"o1", "o2", "o3"} {
		if err := s.InsertOrder(ctx, &model.Order{ID: id, AccountID: "a1", Status: model.StatusPending}); err != nil {
			t.Fatal(err)
		}
	}

	orders, _ := s.ListOrdersByAccount(ctx, "a1")
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	for i, want := range []string{"o1", "o2", "o3"} {
		if orders[i].ID != want {
			t.Errorf("orders[%d] = %s, want %s", i, orders[i].ID, want)
		}
	}
}
