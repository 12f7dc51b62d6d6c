package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/mq"
	"fooddash/internal/service/order/domain"
)

const (
	OrderEventsTopic         = "order-events"
	CompensationFailureTopic = "inventory-compensation-failed"
)

// NotificationKafkaAdapter 实现了 port.EventPublisher 接口，事件按用户 ID 分区。
type NotificationKafkaAdapter struct {
	writer mq.MessageWriter
}

// NewNotificationKafkaAdapter 创建一个新的事件生产者适配器。
func NewNotificationKafkaAdapter(writer mq.MessageWriter) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

func (a *NotificationKafkaAdapter) Publish(ctx context.Context, event domain.OrderEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	key := []byte(strconv.FormatInt(event.UserID, 10))
	return mq.ProduceMessage(ctx, a.writer, event.Type, key, eventBytes)
}

// CompensationKafkaAdapter 实现了 port.CompensationReporter，把归还失败写入专用主题。
type CompensationKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewCompensationKafkaAdapter(writer mq.MessageWriter) *CompensationKafkaAdapter {
	return &CompensationKafkaAdapter{writer: writer}
}

func (a *CompensationKafkaAdapter) ReportCompensationFailure(ctx context.Context, failure domain.CompensationFailure) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return errors.Wrap(err, "marshal compensation failure")
	}
	key := []byte(strconv.FormatInt(failure.MenuID, 10))
	return mq.ProduceMessage(ctx, a.writer, "inventory.restore_failed", key, data)
}
