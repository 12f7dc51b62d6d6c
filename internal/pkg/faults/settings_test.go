package faults

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func TestPaymentShouldFailBoundaries(t *testing.T) {
	s := NewSettingsWithSource(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		if s.PaymentShouldFail() {
			t.Fatal("0% must never fail")
		}
	}

	if err := s.SetPaymentFailPercent(100); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if !s.PaymentShouldFail() {
			t.Fatal("100% must always fail")
		}
	}
}

func TestKnobsRejectOutOfRange(t *testing.T) {
	s := NewSettings()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"payment above", func() error { return s.SetPaymentFailPercent(101) }},
		{"payment below", func() error { return s.SetPaymentFailPercent(-1) }},
		{"error above", func() error { return s.SetInventoryErrorPercent(200) }},
		{"negative delay", func() error { return s.SetInventoryDelay(-time.Millisecond) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("err = %v, want ErrOutOfRange", err)
			}
		})
	}
	if got := s.Snapshot(); got != (Snapshot{}) {
		t.Errorf("rejected writes changed settings: %+v", got)
	}
}

func TestApplyAndSnapshot(t *testing.T) {
	s := NewSettings()
	want := Snapshot{PaymentFailPercent: 25, InventoryDelayMs: 40, InventoryErrorPercent: 5}
	if err := s.Apply(want); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot(); got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
}

func TestWaitInventoryDelayHonorsCancellation(t *testing.T) {
	s := NewSettings()
	if err := s.SetInventoryDelay(time.Hour); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.WaitInventoryDelay(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait ignored context deadline")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewSettings()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(p int) {
			defer wg.Done()
			_ = s.SetPaymentFailPercent(p % 101)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.PaymentShouldFail()
		}()
	}
	wg.Wait()
}
