package saga

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
)

// InventoryHandler 按菜品 ID 升序逐个扣减库存，每次调用只锁一个菜品。
//
// 中途失败时默认不归还已经扣掉的菜品（与线上行为一致），
// 只有开启 CompensatePartial 才会立即归还。
type InventoryHandler struct {
	NextHandler
}

func (h *InventoryHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.InventoryReserve")
	defer span.End()

	logger.Ctx(ctx).Debug().Int64("order_id", orderCtx.Order.ID).Msg("【Saga】=> 步骤 4: 扣减库存...")

	var reserved []domain.OrderItem
	orderCtx.AddCompensation(func(compCtx context.Context) {
		failures := Restore(compCtx, orderCtx.Tracer, orderCtx.Inventory, orderCtx.Reporter, orderCtx.Metrics, orderCtx.Order.ID, reserved)
		orderCtx.recordFailures(failures)
	})

	for _, item := range SortedItems(orderCtx.Order.Items) {
		if _, err := orderCtx.Inventory.Decrement(ctx, item.MenuID, item.Quantity); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inventory reservation failed")
			span.SetAttributes(attribute.Int64("failed.menu_id", item.MenuID), attribute.Int("reserved.count", len(reserved)))
			logger.Ctx(ctx).Warn().Err(err).
				Int64("order_id", orderCtx.Order.ID).
				Int64("menu_id", item.MenuID).
				Int("already_reserved", len(reserved)).
				Bool("compensate", orderCtx.CompensatePartial).
				Msg("inventory decrement failed")
			if orderCtx.CompensatePartial {
				orderCtx.TriggerCompensation(ctx)
			}
			return errors.Wrapf(err, "decrement menu %d", item.MenuID)
		}
		reserved = append(reserved, item)
	}

	span.AddEvent("All items reserved successfully")
	return h.executeNext(orderCtx)
}

// SortedItems 返回按菜品 ID 升序排列的副本，相同菜品保持原有顺序。
func SortedItems(items []domain.OrderItem) []domain.OrderItem {
	out := append([]domain.OrderItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MenuID < out[j].MenuID })
	return out
}
