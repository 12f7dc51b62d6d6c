// internal/pkg/faults/settings.go
package faults

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var ErrOutOfRange = errors.New("fault knob out of range")

// Settings 是进程级的故障注入开关。所有读写都是并发安全的，
// 写入在下一次调用时生效，没有过期时间。
type Settings struct {
	paymentFailPercent    atomic.Int32
	inventoryDelayMs      atomic.Int64
	inventoryErrorPercent atomic.Int32

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Snapshot 是某一时刻的开关取值。
type Snapshot struct {
	PaymentFailPercent    int `json:"payment_fail_percent"`
	InventoryDelayMs      int `json:"inventory_delay_ms"`
	InventoryErrorPercent int `json:"inventory_error_percent"`
}

func NewSettings() *Settings {
	return NewSettingsWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSettingsWithSource 允许注入随机源，便于测试复现。
func NewSettingsWithSource(src rand.Source) *Settings {
	return &Settings{rnd: rand.New(src)}
}

func (s *Settings) SetPaymentFailPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return errors.Wrapf(ErrOutOfRange, "payment fail percent %d", percent)
	}
	s.paymentFailPercent.Store(int32(percent))
	return nil
}

func (s *Settings) PaymentFailPercent() int { return int(s.paymentFailPercent.Load()) }

func (s *Settings) SetInventoryDelay(d time.Duration) error {
	if d < 0 {
		return errors.Wrapf(ErrOutOfRange, "inventory delay %v", d)
	}
	s.inventoryDelayMs.Store(d.Milliseconds())
	return nil
}

func (s *Settings) InventoryDelay() time.Duration {
	return time.Duration(s.inventoryDelayMs.Load()) * time.Millisecond
}

func (s *Settings) SetInventoryErrorPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return errors.Wrapf(ErrOutOfRange, "inventory error percent %d", percent)
	}
	s.inventoryErrorPercent.Store(int32(percent))
	return nil
}

func (s *Settings) InventoryErrorPercent() int { return int(s.inventoryErrorPercent.Load()) }

// Apply 一次性写入所有开关，用于配置中心推送。
func (s *Settings) Apply(snap Snapshot) error {
	if err := s.SetPaymentFailPercent(snap.PaymentFailPercent); err != nil {
		return err
	}
	if err := s.SetInventoryErrorPercent(snap.InventoryErrorPercent); err != nil {
		return err
	}
	return s.SetInventoryDelay(time.Duration(snap.InventoryDelayMs) * time.Millisecond)
}

func (s *Settings) Snapshot() Snapshot {
	return Snapshot{
		PaymentFailPercent:    s.PaymentFailPercent(),
		InventoryDelayMs:      int(s.inventoryDelayMs.Load()),
		InventoryErrorPercent: s.InventoryErrorPercent(),
	}
}

// PaymentShouldFail 掷一次 1..100 的骰子，点数 <= 失败率时判定支付失败。
// 0% 永不失败，100% 必定失败。
func (s *Settings) PaymentShouldFail() bool {
	return s.roll() <= s.PaymentFailPercent()
}

// InventoryShouldFail 与 PaymentShouldFail 相同，作用于库存变更。
func (s *Settings) InventoryShouldFail() bool {
	return s.roll() <= s.InventoryErrorPercent()
}

// WaitInventoryDelay 按当前配置阻塞，ctx 取消时提前返回。
func (s *Settings) WaitInventoryDelay(ctx context.Context) error {
	d := s.InventoryDelay()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Settings) roll() int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(100) + 1
}
