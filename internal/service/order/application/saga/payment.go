package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
)

// PaymentHandler 执行支付。支付失败不是错误：订单进入 FAILED，库存全部归还，流程正常结束。
// 支付结果先按条件写库（库中状态仍为 PENDING），写入成功后才归还库存。
type PaymentHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewPaymentHandler(repo domain.OrderRepository) *PaymentHandler {
	return &PaymentHandler{repo: repo}
}

func (h *PaymentHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Payment")
	defer span.End()

	order := orderCtx.Order
	paid := orderCtx.Payment.Charge(ctx, order.ID, order.TotalPrice)
	span.SetAttributes(attribute.Bool("payment.success", paid))

	prevStatus, prevPayment := order.Status, order.PaymentStatus
	if paid {
		if err := order.Confirm(); err != nil {
			return err
		}
	} else {
		order.FailPayment()
		orderCtx.PaymentDeclined = true
	}

	if err := h.repo.UpdateStatus(ctx, order, domain.StatusPending); err != nil {
		// 内存中的状态回到库里的值，由调用方按实际状态收尾
		target := order.Status
		order.Status, order.PaymentStatus = prevStatus, prevPayment
		span.RecordError(err)
		span.SetStatus(codes.Error, "save payment result failed")
		return errors.Wrapf(err, "save order %d as %s", order.ID, target)
	}

	if paid {
		logger.Ctx(ctx).Info().Int64("order_id", order.ID).Msg("【Saga】=> 步骤 5: 支付成功")
	} else {
		span.SetStatus(codes.Error, "payment declined")
		logger.Ctx(ctx).Warn().Int64("order_id", order.ID).Msg("【Saga】=> 步骤 5: 支付失败, 归还库存")
		orderCtx.TriggerCompensation(ctx)
	}
	return h.executeNext(orderCtx)
}
