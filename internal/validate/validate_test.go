package validate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/simvest/trade-engine/internal/model"
	"github.com/simvest/trade-engine/internal/symbol"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newValidator() *Validator {
	return NewValidator(1000, symbol.NewDirectory("AAPL", "MSFT"))
}

func TestCheckStatic(t *testing.T) {
	v := newValidator()

	cases := []struct {
		name     string
		symbol   string
		side     string
		quantity int64
		wantErr  error
	}{
		{"valid buy", "AAPL", model.SideBuy, 10, nil},
		{"valid sell", "MSFT", model.SideSell, 1, nil},
		{"zero quantity", "AAPL", model.SideBuy, 0, ErrInvalidQuantity},
		{"negative quantity", "AAPL", model.SideBuy, -5, ErrInvalidQuantity},
		{"over max quantity", "AAPL", model.SideBuy, 1001, ErrInvalidQuantity},
		{"bad side", "AAPL", "HOLD", 10, ErrInvalidSide},
		{"unknown symbol", "TSLA", model.SideBuy, 10, ErrUnknownSymbol},
	}

	for _, tc := range cases {
		err := v.CheckStatic(tc.symbol, tc.side, tc.quantity)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: CheckStatic = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestCheckStatic_InactiveSymbol(t *testing.T) {
	dir := symbol.NewDirectory("AAPL")
	dir.Deactivate("AAPL")
	v := NewValidator(1000, dir)

	if err := v.CheckStatic("AAPL", model.SideBuy, 10); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("CheckStatic on inactive symbol = %v, want ErrUnknownSymbol", err)
	}
}

func TestCheckAdvisory_Buy(t *testing.T) {
	v := newValidator()
	snap := &model.AccountSnapshot{AccountID: "a1", CashBalance: d("1000.00")}

	// 10 @ 99.00 = 990.00 + 0.99 commission = 990.99, affordable.
	if err := v.CheckAdvisory("AAPL", model.SideBuy, 10, d("99.00"), snap); err != nil {
		t.Errorf("affordable buy rejected: %v", err)
	}

	// 10 @ 100.00 = 1000.00 + 1.00 = 1001.00, over balance.
	err := v.CheckAdvisory("AAPL", model.SideBuy, 10, d("100.00"), snap)
	if !errors.Is(err, ErrEstimatedInsufficientFunds) {
		t.Errorf("unaffordable buy = %v, want ErrEstimatedInsufficientFunds", err)
	}

	// No recent price: the estimate is skipped, not rejected.
	if err := v.CheckAdvisory("AAPL", model.SideBuy, 10, decimal.Zero, snap); err != nil {
		t.Errorf("buy with no observed price should pass advisory stage: %v", err)
	}
}

func TestCheckAdvisory_Sell(t *testing.T) {
	v := newValidator()
	snap := &model.AccountSnapshot{
		AccountID:   "a1",
		CashBalance: d("0"),
		Holdings: []model.Holding{
			{AccountID: "a1", Symbol: "AAPL", Quantity: 5, AverageCost: d("150.00")},
		},
	}

	if err := v.CheckAdvisory("AAPL", model.SideSell, 5, d("150.00"), snap); err != nil {
		t.Errorf("covered sell rejected: %v", err)
	}

	err := v.CheckAdvisory("AAPL", model.SideSell, 6, d("150.00"), snap)
	if !errors.Is(err, ErrEstimatedInsufficientShares) {
		t.Errorf("oversell = %v, want ErrEstimatedInsufficientShares", err)
	}

	// Selling a symbol with no holding at all.
	err = v.CheckAdvisory("MSFT", model.SideSell, 1, d("10.00"), snap)
	if !errors.Is(err, ErrEstimatedInsufficientShares) {
		t.Errorf("sell with no holding = %v, want ErrEstimatedInsufficientShares", err)
	}
}

func TestNewValidator_DefaultMax(t *testing.T) {
	v := NewValidator(0, symbol.NewDirectory("AAPL"))
	if v.MaxQuantity != DefaultMaxQuantity {
		t.Errorf("MaxQuantity = %d, want default %d", v.MaxQuantity, DefaultMaxQuantity)
	}
}
