package trade

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/pricing"
	"github.com/simvest/trade-engine/internal/symbol"
)

// QuoteAdmin manages the quote table and symbol directory that back the
// price oracle. This is the operational surface for publishing prices;
// order execution itself never writes quotes.
type QuoteAdmin struct {
	oracle  *pricing.StaticOracle
	symbols *symbol.Directory
	cache   *pricing.CachedOracle // optional; invalidated on quote updates
}

// NewQuoteAdmin creates the quote admin handlers. cache may be nil when no
// cached oracle is wired.
func NewQuoteAdmin(oracle *pricing.StaticOracle, symbols *symbol.Directory, cache *pricing.CachedOracle) *QuoteAdmin {
	return &QuoteAdmin{oracle: oracle, symbols: symbols, cache: cache}
}

// QuoteRequest is the JSON body for POST /api/v1/quotes.
type QuoteRequest struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// SetQuote handles POST /api/v1/quotes
// Publishes the current price for a symbol and lists it as active.
func (q *QuoteAdmin) SetQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))

	if !req.Price.IsPositive() {
		writeError(w, "price must be positive", http.StatusBadRequest)
		return
	}
	if err := q.symbols.Add(req.Symbol); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	q.oracle.SetQuote(req.Symbol, req.Price)
	if q.cache != nil {
		q.cache.Invalidate(r.Context(), req.Symbol)
	}

	slog.Info("quote published", "symbol", req.Symbol, "price", req.Price.String())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"symbol": req.Symbol,
		"price":  req.Price.String(),
	})
}

// ListSymbols handles GET /api/v1/symbols
// Returns all currently tradable symbols.
func (q *QuoteAdmin) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols := q.symbols.List()
	if symbols == nil {
		symbols = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(symbols)
}
