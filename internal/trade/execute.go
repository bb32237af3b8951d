package trade

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/commission"
	"github.com/simvest/trade-engine/internal/metrics"
	"github.com/simvest/trade-engine/internal/model"
	"github.com/simvest/trade-engine/internal/store"
	"github.com/simvest/trade-engine/internal/validate"
)

// advisoryCheck runs the optimistic pre-check against the snapshot taken
// before the lock, using the most recently observed price (best-effort;
// an unavailable price just skips the cost estimate). On rejection the
// order is failed with the advisory reason and execution never starts.
func (s *Service) advisoryCheck(ctx context.Context, order *model.Order, snap *model.AccountSnapshot) (OrderResult, bool) {
	pctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	lastPrice, err := s.oracle.CurrentPrice(pctx, order.Symbol)
	cancel()
	if err != nil {
		lastPrice = decimal.Zero
	}

	err = s.validator.CheckAdvisory(order.Symbol, order.Side, order.Quantity, lastPrice, snap)
	switch {
	case err == nil:
		return OrderResult{}, false
	case errors.Is(err, validate.ErrEstimatedInsufficientFunds):
		return s.fail(ctx, order, model.ReasonEstimatedInsufficientFunds, err), true
	case errors.Is(err, validate.ErrEstimatedInsufficientShares):
		return s.fail(ctx, order, model.ReasonEstimatedInsufficientShares, err), true
	default:
		return s.fail(ctx, order, model.ReasonSystemError, err), true
	}
}

// execute runs the atomic execution sequence for a persisted PENDING order:
// lock the account, re-read state, fetch the price within a bounded
// timeout, re-validate authoritatively, and apply the full state
// transition through the ledger as one unit. Any failure leaves the
// account and holding exactly as they were, with the order FAILED.
func (s *Service) execute(ctx context.Context, order *model.Order) OrderResult {
	start := time.Now()
	defer func() {
		metrics.OrderExecutionLatency.WithLabelValues(order.Side).Observe(time.Since(start).Seconds())
	}()

	s.locks.Lock(order.AccountID)
	defer s.locks.Unlock(order.AccountID)

	// Re-read balance and holding under the lock; the advisory snapshot
	// may be stale by now.
	account, err := s.store.GetAccount(ctx, order.AccountID)
	if err != nil {
		return s.fail(ctx, order, model.ReasonSystemError, err)
	}

	var heldQty int64
	var avgCost decimal.Decimal
	holding, err := s.store.GetHolding(ctx, order.AccountID, order.Symbol)
	switch {
	case err == nil:
		heldQty = holding.Quantity
		avgCost = holding.AverageCost
	case errors.Is(err, store.ErrNotFound):
		// No existing position.
	default:
		return s.fail(ctx, order, model.ReasonSystemError, err)
	}

	// Bounded price lookup: the only I/O allowed to hold the lock.
	pctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	price, err := s.oracle.CurrentPrice(pctx, order.Symbol)
	cancel()
	if err != nil {
		return s.fail(ctx, order, model.ReasonPriceUnavailable, err)
	}

	notional := commission.Notional(price, order.Quantity)
	comm := commission.Commission(notional)
	now := time.Now().UTC()

	var (
		newBalance decimal.Decimal
		cashDelta  decimal.Decimal
		newQty     int64
		newAvg     decimal.Decimal
		realized   decimal.Decimal
	)

	switch order.Side {
	case model.SideBuy:
		total := notional.Add(comm)
		if account.CashBalance.LessThan(total) {
			return s.fail(ctx, order, model.ReasonInsufficientFunds, nil)
		}
		newBalance = account.CashBalance.Sub(total)
		cashDelta = total.Neg()
		newQty = heldQty + order.Quantity
		newAvg = commission.WeightedAverageCost(heldQty, avgCost, order.Quantity, price)

	case model.SideSell:
		if heldQty < order.Quantity {
			return s.fail(ctx, order, model.ReasonInsufficientShares, nil)
		}
		net := notional.Sub(comm)
		newBalance = account.CashBalance.Add(net)
		cashDelta = net
		newQty = heldQty - order.Quantity
		newAvg = avgCost // sells never alter the cost basis
		realized = commission.RealizedPnL(price, avgCost, order.Quantity, comm)

	default:
		return s.fail(ctx, order, model.ReasonSystemError, errors.New("trade: unknown order side"))
	}

	completed := *order
	completed.Status = model.StatusCompleted
	completed.ExecutionPrice = price
	completed.Commission = comm

	update := &store.ExecutionUpdate{
		AccountID:  order.AccountID,
		NewBalance: newBalance,
		Holding: model.Holding{
			AccountID:   order.AccountID,
			Symbol:      order.Symbol,
			Quantity:    newQty,
			AverageCost: newAvg,
			UpdatedAt:   now,
		},
		Order: completed,
		Transaction: model.Transaction{
			ID:           uuid.New().String(),
			AccountID:    order.AccountID,
			OrderID:      order.ID,
			Side:         order.Side,
			Symbol:       order.Symbol,
			Quantity:     order.Quantity,
			Price:        price,
			Commission:   comm,
			CashDelta:    cashDelta,
			BalanceAfter: newBalance,
			RealizedPnL:  realized,
			Timestamp:    now,
		},
	}

	if err := s.store.ApplyExecution(ctx, update); err != nil {
		return s.fail(ctx, order, model.ReasonSystemError, err)
	}

	metrics.OrdersTotal.WithLabelValues(order.Side, model.StatusCompleted).Inc()
	slog.Info("order executed",
		"order", order.ID,
		"account", order.AccountID,
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", order.Quantity,
		"price", price.String(),
		"commission", comm.String(),
		"balance", newBalance.String(),
	)

	return OrderResult{
		OrderID:        order.ID,
		AccountID:      order.AccountID,
		Symbol:         order.Symbol,
		Side:           order.Side,
		Quantity:       order.Quantity,
		Status:         model.StatusCompleted,
		ExecutionPrice: price,
		Commission:     comm,
		CashDelta:      cashDelta,
		BalanceAfter:   newBalance,
		RealizedPnL:    realized,
	}
}

// fail moves the order to its terminal FAILED status with the specific
// reason. No ledger mutation has been applied when this is called. The
// write runs detached from cancellation so a dead caller context can
// never strand the order in PENDING.
func (s *Service) fail(ctx context.Context, order *model.Order, reason string, cause error) OrderResult {
	if err := s.store.MarkOrderFailed(context.WithoutCancel(ctx), order.ID, reason); err != nil {
		slog.Error("failed to persist order failure", "order", order.ID, "err", err)
	}

	metrics.OrdersTotal.WithLabelValues(order.Side, model.StatusFailed).Inc()
	metrics.OrderRejections.WithLabelValues(reason).Inc()

	slog.Warn("order failed",
		"order", order.ID,
		"account", order.AccountID,
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", order.Quantity,
		"reason", reason,
		"err", cause,
	)

	return OrderResult{
		OrderID:       order.ID,
		AccountID:     order.AccountID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		Status:        model.StatusFailed,
		FailureReason: reason,
	}
}
