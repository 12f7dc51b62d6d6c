// internal/service/order/interfaces/compensation_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/pkg/mq"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// MessageReader 是 kafka.Reader 中消费者用到的部分
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CompensationConsumer 监听库存归还失败的消息，再尝试归还一次。
// 归还按 (订单, 菜品) 去重，第一次调用如果其实已经生效，重试不会重复加库存。
// 第二次仍然失败时只记录 CRITICAL 日志并提交 offset，需要人工介入。
type CompensationConsumer struct {
	reader    MessageReader
	inventory port.InventoryService
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

func NewCompensationConsumer(reader MessageReader, inventory port.InventoryService, m *metrics.Metrics) *CompensationConsumer {
	return &CompensationConsumer{reader: reader, inventory: inventory, metrics: m}
}

// Start 在后台开始消费，ctx 取消后退出。
func (c *CompensationConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("✅ Compensation consumer started.")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("🛑 Compensation consumer shutting down.")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			c.handle(mq.ExtractContext(ctx, msg), msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
			}
		}
	}()
}

// Stop 关闭 reader 并等待消费循环退出。
func (c *CompensationConsumer) Stop(ctx context.Context) {
	if err := c.reader.Close(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("close compensation reader")
	}
	c.wg.Wait()
	logger.Ctx(ctx).Info().Msg("✅ Compensation consumer stopped.")
}

func (c *CompensationConsumer) handle(ctx context.Context, msg kafka.Message) {
	var failure domain.CompensationFailure
	if err := json.Unmarshal(msg.Value, &failure); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("value", string(msg.Value)).Msg("malformed compensation message skipped")
		return
	}
	if failure.MenuID <= 0 || failure.Quantity <= 0 {
		logger.Ctx(ctx).Error().Str("value", string(msg.Value)).Msg("compensation message has no item, skipped")
		return
	}

	remaining, err := c.inventory.Increment(ctx, failure.OrderID, failure.MenuID, failure.Quantity)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveCompensationFailure()
		}
		logger.Ctx(ctx).Error().
			Err(err).
			Int64("order_id", failure.OrderID).
			Int64("menu_id", failure.MenuID).
			Int("quantity", failure.Quantity).
			Str("first_reason", failure.Reason).
			Msg("🚨 CRITICAL: inventory restore retry failed, manual reconciliation required")
		return
	}
	logger.Ctx(ctx).Info().
		Int64("order_id", failure.OrderID).
		Int64("menu_id", failure.MenuID).
		Int("quantity", failure.Quantity).
		Int("remaining", remaining).
		Msg("inventory restored on retry")
}
