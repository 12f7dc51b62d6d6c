package adapter

import (
	"context"

	"github.com/pkg/errors"

	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// FanoutPublisher 把同一个事件发给多个发布者，全部尝试后再汇总错误。
type FanoutPublisher []port.EventPublisher

func (f FanoutPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	var first error
	failed := 0
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.Wrapf(first, "%d of %d publishers failed", failed, len(f))
	}
	return nil
}
