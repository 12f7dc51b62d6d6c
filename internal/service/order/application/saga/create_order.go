package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
)

// CreateOrderHandler 在一个本地事务中持久化 PENDING 订单和订单行，价格从此冻结。
type CreateOrderHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewCreateOrderHandler(repo domain.OrderRepository) *CreateOrderHandler {
	return &CreateOrderHandler{repo: repo}
}

func (h *CreateOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	if err := h.repo.Create(ctx, orderCtx.Order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist order failed")
		return errors.Wrap(err, "save pending order")
	}
	span.SetAttributes(attribute.Int64("order.id", orderCtx.Order.ID))
	logger.Ctx(ctx).Info().
		Int64("order_id", orderCtx.Order.ID).
		Int64("user_id", orderCtx.Order.UserID).
		Int64("total_price", orderCtx.Order.TotalPrice).
		Msg("【Saga】=> 步骤 3: 订单已落库 (PENDING)")

	return h.executeNext(orderCtx)
}
