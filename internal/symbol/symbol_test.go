package symbol

import (
	"errors"
	"testing"
)

func TestValidateTicker(t *testing.T) {
	valid := []string{"A", "F", "AAPL", "MSFT", "GOOGL"}
	for _, s := range valid {
		if err := ValidateTicker(s); err != nil {
			t.Errorf("ValidateTicker(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "aapl", "TOOLONG", "BRK.B", "AAPL1", " AAPL", "123"}
	for _, s := range invalid {
		err := ValidateTicker(s)
		if !errors.Is(err, ErrInvalidTicker) {
			t.Errorf("ValidateTicker(%q) = %v, want ErrInvalidTicker", s, err)
		}
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory("AAPL", "MSFT")

	if !d.IsActive("AAPL") {
		t.Error("AAPL should be active")
	}
	if d.IsActive("TSLA") {
		t.Error("TSLA should not be active")
	}

	if err := d.Add("tsla"); err != nil {
		t.Fatalf("Add(tsla) = %v", err)
	}
	if !d.IsActive("TSLA") {
		t.Error("Add should upper-case and activate TSLA")
	}

	d.Deactivate("AAPL")
	if d.IsActive("AAPL") {
		t.Error("AAPL should be inactive after Deactivate")
	}

	if err := d.Add("not-a-ticker"); !errors.Is(err, ErrInvalidTicker) {
		t.Errorf("Add(not-a-ticker) = %v, want ErrInvalidTicker", err)
	}
}

func TestDirectoryList(t *testing.T) {
	d := NewDirectory("AAPL", "MSFT", "GOOG")
	d.Deactivate("MSFT")

	list := d.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d symbols, want 2", len(list))
	}
	for _, s := range list {
		if s == "MSFT" {
			t.Error("List should not include deactivated symbol")
		}
	}
}
