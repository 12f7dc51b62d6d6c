package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// PricingHandler 逐行查询菜品价格，生成价格快照，并执行准入规则。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Pricing")
	defer span.End()

	logger.Ctx(ctx).Debug().Int("lines", len(orderCtx.Lines)).Msg("【Saga】=> 步骤 2: 查询菜品价格...")

	if len(orderCtx.Lines) == 0 {
		return domain.ErrEmptyOrder
	}

	// 同一个菜品出现多行时只报价一次，保证同一订单内单价一致
	quotes := make(map[int64]*port.MenuQuote, len(orderCtx.Lines))
	items := make([]domain.OrderItem, 0, len(orderCtx.Lines))
	menuIDs := make([]int64, 0, len(orderCtx.Lines))
	for _, line := range orderCtx.Lines {
		if line.Quantity <= 0 {
			return errors.Wrapf(domain.ErrInvalidQuantity, "menu %d", line.MenuID)
		}
		q, ok := quotes[line.MenuID]
		if !ok {
			var err error
			q, err = orderCtx.Catalog.GetPrice(ctx, line.MenuID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "menu lookup failed")
				return errors.Wrapf(err, "price menu %d", line.MenuID)
			}
			quotes[line.MenuID] = q
		}
		items = append(items, domain.OrderItem{
			MenuID:   line.MenuID,
			Quantity: line.Quantity,
			Price:    q.Price,
			Name:     q.Name,
		})
		menuIDs = append(menuIDs, line.MenuID)
	}

	order, err := domain.NewOrder(orderCtx.UserID, orderCtx.Address, orderCtx.Phone, items)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int64("order.total_price", order.TotalPrice))

	if orderCtx.Admission != nil {
		req := port.AdmissionRequest{
			UserID:     order.UserID,
			TotalPrice: order.TotalPrice,
			ItemCount:  len(items),
			MenuIDs:    menuIDs,
		}
		if err := orderCtx.Admission.Admit(ctx, req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "order rejected")
			return err
		}
	}

	orderCtx.Items = items
	orderCtx.Order = order
	return h.executeNext(orderCtx)
}
