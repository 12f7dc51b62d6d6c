package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// LineItem 是下单请求中的一行
type LineItem struct {
	MenuID   int64
	Quantity int
}

// OrderContext 在 Saga 流程中传递上下文数据。
// 所有外部依赖都是出站端口，由应用服务在每次下单时注入。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	Token   string
	Address string
	Phone   string
	Lines   []LineItem

	// 以下字段由各步骤依次填充
	UserID int64
	Items  []domain.OrderItem
	Order  *domain.Order

	Identity  port.IdentityService
	Catalog   port.CatalogService
	Inventory port.InventoryService
	Payment   port.PaymentGateway
	Admission port.AdmissionPolicy
	Reporter  port.CompensationReporter
	Metrics   *metrics.Metrics

	// CompensatePartial 为 true 时，扣减库存中途失败会归还本次已经扣掉的菜品。
	CompensatePartial bool

	// PaymentDeclined 表示支付已被拒绝，订单写入 FAILED 之后需要归还库存。
	PaymentDeclined bool

	compensations []func(ctx context.Context)
	failures      []domain.CompensationFailure
	compLock      sync.Mutex
}

// AddCompensation 注册补偿操作，后注册的先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 执行并清空已注册的补偿，重复调用不会重复归还。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	logger.Ctx(ctx).Info().Int64("order_id", c.orderID()).Int("count", len(comps)).Msg("executing compensation functions")
	for _, comp := range comps {
		comp(ctx)
	}
}

// CompensationFailures 返回补偿过程中被吞掉的失败。
func (c *OrderContext) CompensationFailures() []domain.CompensationFailure {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	return append([]domain.CompensationFailure(nil), c.failures...)
}

func (c *OrderContext) recordFailures(fs []domain.CompensationFailure) {
	if len(fs) == 0 {
		return
	}
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.failures = append(c.failures, fs...)
}

func (c *OrderContext) orderID() int64 {
	if c.Order == nil {
		return 0
	}
	return c.Order.ID
}

// Handler 和 NextHandler 构成责任链。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
