// Package symbol handles security ticker validation and the active-symbol
// directory consulted by order validation.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// tickerRegex matches plain equity tickers: 1-5 uppercase letters.
// Example: AAPL, MSFT, F
var tickerRegex = regexp.MustCompile(`^[A-Z]{1,5}$`)

var (
	ErrInvalidTicker = errors.New("symbol: invalid ticker format")
	ErrUnknown       = errors.New("symbol: unknown or inactive symbol")
)

// ValidateTicker checks that a ticker is well-formed.
func ValidateTicker(ticker string) error {
	if !tickerRegex.MatchString(ticker) {
		return fmt.Errorf("%w: %q (expected 1-5 uppercase letters)", ErrInvalidTicker, ticker)
	}
	return nil
}

// Directory is the registry of tradable symbols. A symbol must be listed
// and active before orders for it are accepted.
type Directory struct {
	mu     sync.RWMutex
	active map[string]bool
}

// NewDirectory creates a directory pre-listing the given symbols as active.
// Invalid tickers are silently skipped; use Add to get the error.
func NewDirectory(symbols ...string) *Directory {
	d := &Directory{active: make(map[string]bool)}
	for _, s := range symbols {
		_ = d.Add(s)
	}
	return d
}

// Add lists a symbol as active. Tickers are upper-cased before validation.
func (d *Directory) Add(ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if err := ValidateTicker(ticker); err != nil {
		return err
	}
	d.mu.Lock()
	d.active[ticker] = true
	d.mu.Unlock()
	return nil
}

// Deactivate halts trading in a symbol. Existing holdings are unaffected;
// new orders are rejected by validation.
func (d *Directory) Deactivate(ticker string) {
	d.mu.Lock()
	d.active[ticker] = false
	d.mu.Unlock()
}

// IsActive reports whether a symbol is listed and currently tradable.
func (d *Directory) IsActive(ticker string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active[ticker]
}

// List returns all currently active symbols.
func (d *Directory) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	symbols := make([]string, 0, len(d.active))
	for s, ok := range d.active {
		if ok {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
