package domain

import (
	"errors"
	"testing"
)

func TestMenuItemAvailabilityFollowsStock(t *testing.T) {
	m, err := NewMenuItem(1, "fried chicken", "", 18000, "", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Available {
		t.Fatal("new item with stock must be available")
	}

	steps := []struct {
		name      string
		apply     func() error
		wantErr   error
		wantStock int
	}{
		{"decrement 2", func() error { return m.Decrement(2) }, nil, 1},
		{"decrement too many", func() error { return m.Decrement(2) }, ErrInsufficientStock, 1},
		{"decrement to zero", func() error { return m.Decrement(1) }, nil, 0},
		{"zero quantity", func() error { return m.Decrement(0) }, ErrInvalidQuantity, 0},
		{"increment", func() error { return m.Increment(4) }, nil, 4},
		{"negative increment", func() error { return m.Increment(-1) }, ErrInvalidQuantity, 4},
	}
	for _, s := range steps {
		err := s.apply()
		if !errors.Is(err, s.wantErr) {
			t.Fatalf("%s: err = %v, want %v", s.name, err, s.wantErr)
		}
		if m.Stock != s.wantStock {
			t.Fatalf("%s: stock = %d, want %d", s.name, m.Stock, s.wantStock)
		}
		if m.Available != (m.Stock > 0) {
			t.Fatalf("%s: available=%v with stock %d", s.name, m.Available, m.Stock)
		}
	}
}

func TestNewMenuItemDefaults(t *testing.T) {
	m, err := NewMenuItem(1, "salad", "", 12000, "", -1)
	if err != nil {
		t.Fatal(err)
	}
	if m.Stock != DefaultInventory || !m.Available {
		t.Errorf("stock=%d available=%v", m.Stock, m.Available)
	}

	empty, _ := NewMenuItem(1, "sold out", "", 1000, "", 0)
	if empty.Available {
		t.Error("item without stock must not be available")
	}

	if _, err := NewMenuItem(1, "bad", "", -5, "", 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("err = %v", err)
	}
}
