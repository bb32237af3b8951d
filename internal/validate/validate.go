// Package validate implements order validation: static input checks that
// need no account state, and advisory pre-checks against an account
// snapshot. Advisory results are never the final word: price and balance
// can change between pre-check and execution, so the engine re-checks
// authoritatively under the account lock.
package validate

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/commission"
	"github.com/simvest/trade-engine/internal/model"
)

var (
	// ErrInvalidQuantity is returned when the requested quantity is not a
	// positive integer within the configured maximum.
	ErrInvalidQuantity = errors.New("validate: quantity must be a positive integer within the allowed maximum")

	// ErrInvalidSide is returned when the side is neither BUY nor SELL.
	ErrInvalidSide = errors.New("validate: side must be BUY or SELL")

	// ErrUnknownSymbol is returned when the symbol is not listed or not
	// currently tradable.
	ErrUnknownSymbol = errors.New("validate: unknown or inactive symbol")

	// ErrEstimatedInsufficientFunds is the advisory rejection when the
	// estimated buy cost exceeds the snapshot balance.
	ErrEstimatedInsufficientFunds = errors.New("validate: estimated cost exceeds cash balance")

	// ErrEstimatedInsufficientShares is the advisory rejection when the
	// snapshot holding is smaller than the requested sell quantity.
	ErrEstimatedInsufficientShares = errors.New("validate: estimated shares exceed held quantity")
)

// DefaultMaxQuantity bounds a single order's size.
const DefaultMaxQuantity int64 = 1_000_000

// SymbolDirectory reports whether a symbol is listed and tradable.
type SymbolDirectory interface {
	IsActive(symbol string) bool
}

// Validator checks incoming order requests before execution is attempted.
type Validator struct {
	// MaxQuantity is the largest quantity accepted in one order.
	MaxQuantity int64

	symbols SymbolDirectory
}

// NewValidator creates a validator. maxQuantity <= 0 selects the default.
func NewValidator(maxQuantity int64, symbols SymbolDirectory) *Validator {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Validator{MaxQuantity: maxQuantity, symbols: symbols}
}

// CheckStatic runs the checks that need no account state: quantity bounds,
// side, and symbol listing. Failures here are surfaced directly to the
// caller; no order record is created.
func (v *Validator) CheckStatic(symbol, side string, quantity int64) error {
	if quantity <= 0 || quantity > v.MaxQuantity {
		return ErrInvalidQuantity
	}
	if side != model.SideBuy && side != model.SideSell {
		return ErrInvalidSide
	}
	if !v.symbols.IsActive(symbol) {
		return ErrUnknownSymbol
	}
	return nil
}

// CheckAdvisory runs the optimistic pre-checks against a consistent account
// snapshot using the most recently observed price. A zero lastPrice means
// no recent price is known and the buy-cost estimate is skipped; the
// authoritative check under lock still applies either way.
func (v *Validator) CheckAdvisory(symbol, side string, quantity int64, lastPrice decimal.Decimal, snap *model.AccountSnapshot) error {
	switch side {
	case model.SideBuy:
		if lastPrice.IsPositive() {
			estimated := commission.BuyTotal(commission.Notional(lastPrice, quantity))
			if snap.CashBalance.LessThan(estimated) {
				return ErrEstimatedInsufficientFunds
			}
		}
	case model.SideSell:
		var held int64
		for _, h := range snap.Holdings {
			if h.Symbol == symbol {
				held = h.Quantity
				break
			}
		}
		if held < quantity {
			return ErrEstimatedInsufficientShares
		}
	}
	return nil
}
