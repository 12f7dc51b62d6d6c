package adapter

import (
	"context"

	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/logger"
)

// PaymentSimulator 用故障注入开关模拟支付网关：按设置的失败率随机拒绝。
type PaymentSimulator struct {
	faults *faults.Settings
}

func NewPaymentSimulator(f *faults.Settings) *PaymentSimulator {
	return &PaymentSimulator{faults: f}
}

func (p *PaymentSimulator) Charge(ctx context.Context, orderID int64, amount int64) bool {
	if p.faults.PaymentShouldFail() {
		logger.Ctx(ctx).Warn().Int64("order_id", orderID).Int64("amount", amount).
			Int("fail_percent", p.faults.PaymentFailPercent()).Msg("💳 payment declined by simulator")
		return false
	}
	logger.Ctx(ctx).Debug().Int64("order_id", orderID).Int64("amount", amount).Msg("💳 payment accepted")
	return true
}
