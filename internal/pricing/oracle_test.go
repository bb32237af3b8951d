package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle()
	ctx := context.Background()

	if _, err := o.CurrentPrice(ctx, "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty oracle = %v, want ErrUnavailable", err)
	}

	o.SetQuote("AAPL", d("150.00"))
	price, err := o.CurrentPrice(ctx, "AAPL")
	if err != nil {
		t.Fatalf("CurrentPrice = %v", err)
	}
	if !price.Equal(d("150.00")) {
		t.Errorf("price = %s, want 150.00", price)
	}

	o.RemoveQuote("AAPL")
	if _, err := o.CurrentPrice(ctx, "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("removed quote = %v, want ErrUnavailable", err)
	}
}

func TestStaticOracle_NonPositiveQuoteRemoves(t *testing.T) {
	o := NewStaticOracle()
	o.SetQuote("AAPL", d("150.00"))
	o.SetQuote("AAPL", decimal.Zero)

	if _, err := o.CurrentPrice(context.Background(), "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("zero quote should remove: got %v, want ErrUnavailable", err)
	}
}

func TestStaticOracle_CancelledContext(t *testing.T) {
	o := NewStaticOracle()
	o.SetQuote("AAPL", d("150.00"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.CurrentPrice(ctx, "AAPL"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("cancelled context = %v, want ErrUnavailable", err)
	}
}
