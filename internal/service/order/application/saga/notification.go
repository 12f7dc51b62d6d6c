package saga

import (
	"go.opentelemetry.io/otel/attribute"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// NotificationHandler 是 Saga 流程的最后一步，负责发布订单结果事件。
type NotificationHandler struct {
	NextHandler
	publisher port.EventPublisher
}

func NewNotificationHandler(publisher port.EventPublisher) *NotificationHandler {
	return &NotificationHandler{publisher: publisher}
}

func (h *NotificationHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Notification")
	defer span.End()

	eventType := domain.EventOrderConfirmed
	if orderCtx.Order.Status == domain.StatusFailed {
		eventType = domain.EventOrderFailed
	}
	span.SetAttributes(attribute.String("event.type", eventType))

	// 发布失败不影响订单结果，只记录
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, domain.NewOrderEvent(eventType, orderCtx.Order)); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Int64("order_id", orderCtx.Order.ID).Msg("failed to publish order event")
			span.RecordError(err)
		}
	}

	return h.executeNext(orderCtx)
}
