// internal/service/order/application/service.go
package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fooddash/internal/pkg/cache"
	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/service/order/application/saga"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// Dependencies 汇总了订单应用服务的所有出站依赖
type Dependencies struct {
	Repo      domain.OrderRepository
	Cache     *cache.ReadThrough
	Identity  port.IdentityService
	Catalog   port.CatalogService
	Inventory port.InventoryService
	Payment   port.PaymentGateway
	Admission port.AdmissionPolicy
	Publisher port.EventPublisher
	Reporter  port.CompensationReporter
	Faults    *faults.Settings
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
}

// Options 是订单流程的可调参数
type Options struct {
	CompensatePartialReservation bool
}

// OrderApplicationService 编排订单的创建、查询、取消和配送推进。
type OrderApplicationService struct {
	Dependencies
	opts Options
}

func NewOrderApplicationService(deps Dependencies, opts Options) *OrderApplicationService {
	return &OrderApplicationService{Dependencies: deps, opts: opts}
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.IdentityHandler)
	chain.
		SetNext(new(saga.PricingHandler)).
		SetNext(saga.NewCreateOrderHandler(s.Repo)).
		SetNext(new(saga.InventoryHandler)).
		SetNext(saga.NewPaymentHandler(s.Repo)).
		SetNext(saga.NewNotificationHandler(s.Publisher))
	return chain
}

// CreateOrder 同步执行整个下单 Saga。
//
// 支付失败返回 FAILED 快照且 error 为 nil；落库之后的其它失败会把订单标记为 FAILED，
// 同时返回快照和错误。落库之前的失败没有任何副作用，结果为 nil。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := s.Tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	start := time.Now()
	defer s.Metrics.ObserveSaga(start)

	lines := make([]saga.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, saga.LineItem{MenuID: it.MenuID, Quantity: it.Quantity})
	}
	orderCtx := &saga.OrderContext{
		Ctx:               ctx,
		Tracer:            s.Tracer,
		Token:             req.Token,
		Address:           req.Address,
		Phone:             req.Phone,
		Lines:             lines,
		Identity:          s.Identity,
		Catalog:           s.Catalog,
		Inventory:         s.Inventory,
		Payment:           s.Payment,
		Admission:         s.Admission,
		Reporter:          s.Reporter,
		Metrics:           s.Metrics,
		CompensatePartial: s.opts.CompensatePartialReservation,
	}

	if err := s.buildChain().Handle(orderCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order saga failed")
		return s.failCreation(ctx, orderCtx, err)
	}

	order := orderCtx.Order
	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.String("order.status", string(order.Status)))
	s.Metrics.ObserveOrder("create", string(order.Status))

	view := ToOrderView(order)
	s.putSnapshot(ctx, view)

	logger.Ctx(ctx).Info().
		Int64("order_id", order.ID).
		Str("status", string(order.Status)).
		Int64("total_price", order.TotalPrice).
		Int("compensation_failures", len(orderCtx.CompensationFailures())).
		Msg("order saga finished")
	return &CreateOrderResult{Order: view, CompensationFailures: orderCtx.CompensationFailures()}, nil
}

// failCreation 处理链中途失败：订单已落库时写入 FAILED，保证调用返回后订单处于终态。
// 返回的快照以库中实际保存的状态为准，并覆盖流程进行中可能被缓存的 PENDING 快照。
func (s *OrderApplicationService) failCreation(ctx context.Context, orderCtx *saga.OrderContext, cause error) (*CreateOrderResult, error) {
	order := orderCtx.Order
	if order == nil || order.ID == 0 {
		s.Metrics.ObserveOrder("create", "rejected")
		logger.Ctx(ctx).Warn().Err(cause).Msg("order rejected before persistence")
		return nil, cause
	}

	if order.Status == domain.StatusPending {
		if orderCtx.PaymentDeclined {
			order.FailPayment()
		} else {
			order.MarkAsFailed()
		}
		if err := s.Repo.UpdateStatus(ctx, order, domain.StatusPending); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).Msg("CRITICAL: failed to mark order as FAILED")
			stored, ferr := s.Repo.FindByID(ctx, order.ID)
			if ferr != nil {
				s.Cache.Invalidate(ctx, cache.OrderKey(order.ID))
				return nil, errors.Wrap(cause, err.Error())
			}
			order = stored
		} else {
			if orderCtx.PaymentDeclined {
				orderCtx.TriggerCompensation(ctx)
			}
			s.publish(ctx, domain.NewOrderEvent(domain.EventOrderFailed, order))
		}
	}
	s.Metrics.ObserveOrder("create", string(order.Status))

	view := ToOrderView(order)
	s.putSnapshot(ctx, view)

	logger.Ctx(ctx).Warn().Err(cause).Int64("order_id", order.ID).Str("status", string(order.Status)).Msg("order saga failed")
	return &CreateOrderResult{Order: view, CompensationFailures: orderCtx.CompensationFailures()}, cause
}

// GetOrderSnapshot 返回序列化后的订单快照。TTL 内重复读取返回相同的字节且不访问数据库。
func (s *OrderApplicationService) GetOrderSnapshot(ctx context.Context, id int64) ([]byte, error) {
	ctx, span := s.Tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id))

	data, err := s.Cache.Get(ctx, cache.OrderPolicy, cache.OrderKey(id), func(ctx context.Context) ([]byte, error) {
		order, err := s.Repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ToOrderView(order))
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return data, nil
}

// GetOrder 是 GetOrderSnapshot 的解码版本
func (s *OrderApplicationService) GetOrder(ctx context.Context, id int64) (*OrderView, error) {
	data, err := s.GetOrderSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	var view OrderView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, errors.Wrap(err, "decode order snapshot")
	}
	return &view, nil
}

// ListUserOrders 返回 token 对应用户的全部订单，不走缓存。
func (s *OrderApplicationService) ListUserOrders(ctx context.Context, token string) ([]*OrderView, error) {
	ctx, span := s.Tracer.Start(ctx, "app.ListUserOrders")
	defer span.End()

	userID, err := s.Identity.Verify(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	orders, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, ToOrderView(&orders[i]))
	}
	return views, nil
}

// VerifyUser 暴露身份校验，供 websocket 订阅使用。
func (s *OrderApplicationService) VerifyUser(ctx context.Context, token string) (int64, error) {
	return s.Identity.Verify(ctx, token)
}

// CancelOrder 取消订单并尽力归还库存。归还失败不影响取消结果。
func (s *OrderApplicationService) CancelOrder(ctx context.Context, id int64) (*CancelOrderResult, error) {
	ctx, span := s.Tracer.Start(ctx, "app.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id))

	order, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	from := order.Status
	if err := order.Cancel(); err != nil {
		span.RecordError(err)
		s.Metrics.ObserveOrder("cancel", "rejected")
		return nil, err
	}
	if err := s.Repo.UpdateStatus(ctx, order, from); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrStatusConflict) {
			// 并发修改过，重新读取后按最新状态给出结果，本次不归还库存
			return nil, s.recheckCancel(ctx, id)
		}
		return nil, err
	}

	failures := saga.Restore(ctx, s.Tracer, s.Inventory, s.Reporter, s.Metrics, order.ID, order.Items)
	s.Cache.Invalidate(ctx, cache.OrderKey(order.ID))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCancelled, order))
	s.Metrics.ObserveOrder("cancel", string(domain.StatusCancelled))

	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Str("from", string(from)).Int("compensation_failures", len(failures)).Msg("order cancelled")
	return &CancelOrderResult{OrderID: order.ID, CompensationFailures: failures}, nil
}

func (s *OrderApplicationService) recheckCancel(ctx context.Context, id int64) error {
	latest, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := latest.Cancel(); err != nil {
		return err
	}
	return errors.Wrapf(domain.ErrInvalidState, "order %d changed concurrently", id)
}

// AdvanceStatus 推进配送状态：CONFIRMED -> PREPARING -> OUT_FOR_DELIVERY -> DELIVERED。
func (s *OrderApplicationService) AdvanceStatus(ctx context.Context, id int64, next domain.Status) (*OrderView, error) {
	ctx, span := s.Tracer.Start(ctx, "app.AdvanceStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", id), attribute.String("order.next_status", string(next)))

	order, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := order.Advance(next); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.Repo.UpdateStatus(ctx, order, from); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrStatusConflict) {
			return nil, errors.Wrapf(domain.ErrInvalidState, "order %d changed concurrently", id)
		}
		return nil, err
	}
	s.Cache.Invalidate(ctx, cache.OrderKey(order.ID))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusChanged, order))

	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Str("from", string(from)).Str("to", string(next)).Msg("order status advanced")
	return ToOrderView(order), nil
}

// SetPaymentFailureRate 设置支付失败率，下一次支付立即生效。
func (s *OrderApplicationService) SetPaymentFailureRate(percent int) error {
	return s.Faults.SetPaymentFailPercent(percent)
}

func (s *OrderApplicationService) putSnapshot(ctx context.Context, view *OrderView) {
	data, err := json.Marshal(view)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", view.ID).Msg("encode order snapshot failed")
		return
	}
	s.Cache.Put(ctx, cache.OrderPolicy, cache.OrderKey(view.ID), data)
}

func (s *OrderApplicationService) publish(ctx context.Context, event domain.OrderEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", event.OrderID).Str("type", event.Type).Msg("failed to publish order event")
	}
}
