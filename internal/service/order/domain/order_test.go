package domain

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNewOrderComputesTotal(t *testing.T) {
	o, err := NewOrder(7, "addr", "010", []OrderItem{
		{MenuID: 1, Quantity: 2, Price: 18000, Name: "Fried Chicken"},
		{MenuID: 3, Quantity: 1, Price: 20000, Name: "Pepperoni Pizza"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalPrice != 56000 {
		t.Errorf("total = %d, want 56000", o.TotalPrice)
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		t.Errorf("status = %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestNewOrderValidation(t *testing.T) {
	if _, err := NewOrder(1, "", "", nil); !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("empty: %v", err)
	}
	if _, err := NewOrder(1, "", "", []OrderItem{{MenuID: 1, Quantity: 0, Price: 100}}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: %v", err)
	}
}

func TestCancelGuards(t *testing.T) {
	tests := []struct {
		from    Status
		wantErr error
	}{
		{StatusPending, ErrInvalidState},
		{StatusConfirmed, nil},
		{StatusPreparing, nil},
		{StatusOutForDelivery, ErrInvalidState},
		{StatusDelivered, ErrInvalidState},
		{StatusFailed, ErrInvalidState},
		{StatusCancelled, ErrAlreadyCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			o := &Order{Status: tt.from}
			err := o.Cancel()
			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Fatalf("Cancel() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && o.Status != tt.from {
				t.Errorf("status mutated to %s", o.Status)
			}
			if tt.wantErr == nil && o.Status != StatusCancelled {
				t.Errorf("status = %s", o.Status)
			}
		})
	}
}

func TestAdvance(t *testing.T) {
	o := &Order{Status: StatusConfirmed}
	for _, next := range []Status{StatusPreparing, StatusOutForDelivery, StatusDelivered} {
		if err := o.Advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if err := o.Advance(StatusPreparing); !errors.Is(err, ErrInvalidState) {
		t.Errorf("backwards transition: %v", err)
	}
	p := &Order{Status: StatusPending}
	if err := p.Advance(StatusOutForDelivery); !errors.Is(err, ErrInvalidState) {
		t.Errorf("skip transition: %v", err)
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	o := &Order{Status: StatusFailed}
	if err := o.Confirm(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Confirm() = %v", err)
	}
}
