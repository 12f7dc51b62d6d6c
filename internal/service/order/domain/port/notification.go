package port

import (
	"context"

	"fooddash/internal/service/order/domain"
)

// EventPublisher 发布订单事件。发布失败不改变订单结果。
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// CompensationReporter 上报失败的库存归还，供异步重试。
type CompensationReporter interface {
	ReportCompensationFailure(ctx context.Context, failure domain.CompensationFailure) error
}
