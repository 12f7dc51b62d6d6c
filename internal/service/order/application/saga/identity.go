package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fooddash/internal/pkg/logger"
)

// IdentityHandler 校验调用方身份，失败时没有任何副作用。
type IdentityHandler struct {
	NextHandler
}

func (h *IdentityHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.VerifyIdentity")
	defer span.End()

	logger.Ctx(ctx).Debug().Msg("【Saga】=> 步骤 1: 校验用户身份...")

	userID, err := orderCtx.Identity.Verify(ctx, orderCtx.Token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity verification failed")
		return err
	}
	orderCtx.UserID = userID
	span.SetAttributes(attribute.Int64("user.id", userID))

	return h.executeNext(orderCtx)
}
