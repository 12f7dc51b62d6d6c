package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// Restore 尽力归还库存。同一菜品的多行先合并成一次归还，请求带上订单号，
// 餐厅服务按 (订单, 菜品) 去重。单个菜品失败只记录、上报并继续，从不中断流程；
// 返回值是被吞掉的失败列表。
func Restore(
	ctx context.Context,
	tracer trace.Tracer,
	inventory port.InventoryService,
	reporter port.CompensationReporter,
	m *metrics.Metrics,
	orderID int64,
	items []domain.OrderItem,
) []domain.CompensationFailure {
	if len(items) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "saga.compensation.RestoreStock")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.Int("items", len(items)))

	var failures []domain.CompensationFailure
	for _, item := range mergeByMenu(items) {
		if _, err := inventory.Increment(ctx, orderID, item.MenuID, item.Quantity); err != nil {
			span.RecordError(err, trace.WithAttributes(attribute.Int64("menu.id", item.MenuID)))
			m.ObserveCompensationFailure()
			logger.Ctx(ctx).Error().Err(err).
				Int64("order_id", orderID).
				Int64("menu_id", item.MenuID).
				Int("quantity", item.Quantity).
				Msg("🚨 inventory restore failed during compensation")

			f := domain.CompensationFailure{
				OrderID:  orderID,
				MenuID:   item.MenuID,
				Quantity: item.Quantity,
				Reason:   err.Error(),
				Attempt:  1,
				At:       time.Now().UTC(),
			}
			failures = append(failures, f)
			if reporter != nil {
				if rerr := reporter.ReportCompensationFailure(ctx, f); rerr != nil {
					logger.Ctx(ctx).Error().Err(rerr).Int64("order_id", orderID).Int64("menu_id", item.MenuID).Msg("report compensation failure failed")
				}
			}
		}
	}
	if len(failures) > 0 {
		span.SetStatus(codes.Error, "partial restore")
	}
	return failures
}

// mergeByMenu 按菜品 ID 升序合并数量
func mergeByMenu(items []domain.OrderItem) []domain.OrderItem {
	var out []domain.OrderItem
	for _, item := range SortedItems(items) {
		if n := len(out); n > 0 && out[n-1].MenuID == item.MenuID {
			out[n-1].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}
