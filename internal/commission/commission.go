// Package commission implements the pure trade arithmetic of the engine:
// platform commission, buy/sell cash totals, volume-weighted average cost
// basis, and realized gain/loss.
//
// Every function here is deterministic and side-effect free: quantities
// and prices are passed as arguments, nothing is stored. All monetary
// values use shopspring/decimal, never float64.
package commission

import (
	"github.com/shopspring/decimal"
)

var (
	// Rate is the platform commission rate applied to notional: 0.1%.
	Rate = decimal.NewFromFloat(0.001)

	// MoneyScale is the number of decimal places for currency rounding.
	MoneyScale int32 = 2
)

// Notional returns price × quantity, before commission.
func Notional(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// Commission returns the platform fee on a notional amount:
//
//	round(notional × Rate, 2)
//
// rounded half-up to 2 decimal places of currency.
func Commission(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(Rate).Round(MoneyScale)
}

// BuyTotal returns the total cash debit for a buy: notional + commission.
func BuyTotal(notional decimal.Decimal) decimal.Decimal {
	return notional.Add(Commission(notional))
}

// SellNet returns the net cash credit for a sell: notional − commission.
func SellNet(notional decimal.Decimal) decimal.Decimal {
	return notional.Sub(Commission(notional))
}

// WeightedAverageCost returns the average cost basis after buying quantity
// shares at price on top of an existing position:
//
//	(oldQty × oldAvg + qty × price) / (oldQty + qty)
//
// With no prior position (oldQty = 0) the basis is simply the fill price.
func WeightedAverageCost(oldQty int64, oldAvg decimal.Decimal, quantity int64, price decimal.Decimal) decimal.Decimal {
	if oldQty <= 0 {
		return price
	}
	oldValue := oldAvg.Mul(decimal.NewFromInt(oldQty))
	newValue := price.Mul(decimal.NewFromInt(quantity))
	return oldValue.Add(newValue).Div(decimal.NewFromInt(oldQty + quantity))
}

// RealizedPnL returns the gain or loss recognized when selling quantity
// shares at price against an average cost basis, net of commission:
//
//	(price − avgCost) × quantity − commission
//
// Recorded on the transaction for reporting; it never feeds back into
// wallet state.
func RealizedPnL(price, avgCost decimal.Decimal, quantity int64, commission decimal.Decimal) decimal.Decimal {
	return price.Sub(avgCost).Mul(decimal.NewFromInt(quantity)).Sub(commission)
}
