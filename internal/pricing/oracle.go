// Package pricing defines the price oracle consumed by the trade engine
// and two implementations: a settable in-memory quote table and a Redis
// read-through cache over another oracle.
//
// All prices use shopspring/decimal, never float64.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when no current price can be produced for a
// symbol. The engine fails the order with PRICE_UNAVAILABLE and performs
// no mutation.
var ErrUnavailable = errors.New("pricing: price unavailable")

// Oracle supplies the current execution price for a symbol. Callers bound
// the call with a context deadline; an oracle must respect cancellation
// rather than hold the caller (and the account lock) indefinitely.
type Oracle interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StaticOracle is an in-memory quote table. Quotes are set explicitly,
// which makes it the oracle for development and tests.
type StaticOracle struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

// NewStaticOracle creates an empty quote table.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{quotes: make(map[string]decimal.Decimal)}
}

// SetQuote publishes the current price for a symbol. Non-positive prices
// remove the quote.
func (o *StaticOracle) SetQuote(symbol string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !price.IsPositive() {
		delete(o.quotes, symbol)
		return
	}
	o.quotes[symbol] = price
}

// RemoveQuote withdraws the quote for a symbol; subsequent lookups return
// ErrUnavailable.
func (o *StaticOracle) RemoveQuote(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.quotes, symbol)
}

// CurrentPrice returns the published quote for a symbol.
func (o *StaticOracle) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	o.mu.RLock()
	price, ok := o.quotes[symbol]
	o.mu.RUnlock()

	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}
	return price, nil
}
