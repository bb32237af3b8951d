package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, cash_balance, created_at)
		 VALUES ($1, $2::NUMERIC, $3)`,
		a.ID, a.CashBalance.String(), a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	var balance string

	err := s.pool.QueryRow(ctx,
		`SELECT id, cash_balance::TEXT, created_at FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}

	a.CashBalance, _ = decimal.NewFromString(balance)
	return &a, nil
}

func (s *PostgresStore) UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET cash_balance = $2::NUMERIC WHERE id = $1`,
		id, balance.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetHolding(ctx context.Context, accountID, sym string) (*model.Holding, error) {
	var h model.Holding
	var avgCost string

	err := s.pool.QueryRow(ctx,
		`SELECT account_id, symbol, quantity, average_cost::TEXT, updated_at
		 FROM holdings WHERE account_id = $1 AND symbol = $2`, accountID, sym).
		Scan(&h.AccountID, &h.Symbol, &h.Quantity, &avgCost, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("holding %s/%s: %w", accountID, sym, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get holding %s/%s: %w", accountID, sym, err)
	}

	h.AverageCost, _ = decimal.NewFromString(avgCost)
	return &h, nil
}

func (s *PostgresStore) ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account_id, symbol, quantity, average_cost::TEXT, updated_at
		 FROM holdings WHERE account_id = $1 ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var avgCost string
		if err := rows.Scan(&h.AccountID, &h.Symbol, &h.Quantity, &avgCost, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.AverageCost, _ = decimal.NewFromString(avgCost)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, account_id, symbol, side, quantity, execution_price, commission, status, failure_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8, $9, $10)`,
		o.ID, o.AccountID, o.Symbol, o.Side, o.Quantity,
		o.ExecutionPrice.String(), o.Commission.String(),
		o.Status, o.FailureReason, o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) MarkOrderFailed(ctx context.Context, orderID, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2, failure_reason = $3
		 WHERE id = $1 AND status = $4`,
		orderID, model.StatusFailed, reason, model.StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not pending: %w", orderID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	var price, comm string

	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, symbol, side, quantity,
		        execution_price::TEXT, commission::TEXT,
		        status, failure_reason, created_at
		 FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.AccountID, &o.Symbol, &o.Side, &o.Quantity,
			&price, &comm, &o.Status, &o.FailureReason, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	o.ExecutionPrice, _ = decimal.NewFromString(price)
	o.Commission, _ = decimal.NewFromString(comm)
	return &o, nil
}

func (s *PostgresStore) ListOrdersByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, symbol, side, quantity,
		        execution_price::TEXT, commission::TEXT,
		        status, failure_reason, created_at
		 FROM orders WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var price, comm string
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Symbol, &o.Side, &o.Quantity,
			&price, &comm, &o.Status, &o.FailureReason, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.ExecutionPrice, _ = decimal.NewFromString(price)
		o.Commission, _ = decimal.NewFromString(comm)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ApplyExecution runs the full state transition in one database
// transaction: balance update, holding upsert-or-delete, order completion,
// and the immutable transaction record commit together or not at all.
func (s *PostgresStore) ApplyExecution(ctx context.Context, up *ExecutionUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin execution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET cash_balance = $2::NUMERIC WHERE id = $1`,
		up.AccountID, up.NewBalance.String(),
	); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if up.Holding.Quantity == 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM holdings WHERE account_id = $1 AND symbol = $2`,
			up.AccountID, up.Holding.Symbol,
		); err != nil {
			return fmt.Errorf("delete holding: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`INSERT INTO holdings (account_id, symbol, quantity, average_cost, updated_at)
			 VALUES ($1, $2, $3, $4::NUMERIC, $5)
			 ON CONFLICT (account_id, symbol)
			 DO UPDATE SET quantity = $3, average_cost = $4::NUMERIC, updated_at = $5`,
			up.Holding.AccountID, up.Holding.Symbol, up.Holding.Quantity,
			up.Holding.AverageCost.String(), up.Holding.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert holding: %w", err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, execution_price = $3::NUMERIC, commission = $4::NUMERIC
		 WHERE id = $1 AND status = $5`,
		up.Order.ID, model.StatusCompleted,
		up.Order.ExecutionPrice.String(), up.Order.Commission.String(),
		model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not pending: %w", up.Order.ID, ErrNotFound)
	}

	t := up.Transaction
	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, order_id, side, symbol, quantity, price, commission, cash_delta, balance_after, realized_pnl, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12)`,
		t.ID, t.AccountID, t.OrderID, t.Side, t.Symbol, t.Quantity,
		t.Price.String(), t.Commission.String(), t.CashDelta.String(),
		t.BalanceAfter.String(), t.RealizedPnL.String(), t.Timestamp,
	); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, order_id, side, symbol, quantity,
		        price::TEXT, commission::TEXT, cash_delta::TEXT,
		        balance_after::TEXT, realized_pnl::TEXT, timestamp
		 FROM transactions WHERE account_id = $1 ORDER BY timestamp`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var price, comm, delta, after, pnl string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.OrderID, &t.Side, &t.Symbol, &t.Quantity,
			&price, &comm, &delta, &after, &pnl, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Price, _ = decimal.NewFromString(price)
		t.Commission, _ = decimal.NewFromString(comm)
		t.CashDelta, _ = decimal.NewFromString(delta)
		t.BalanceAfter, _ = decimal.NewFromString(after)
		t.RealizedPnL, _ = decimal.NewFromString(pnl)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
