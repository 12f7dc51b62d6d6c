// internal/service/restaurant/application/ledger.go
package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fooddash/internal/pkg/cache"
	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/service/restaurant/domain"
)

// Ledger 是库存账本：每次变更只锁一个菜品，成功后删除该菜品和菜单列表的缓存。
type Ledger struct {
	store   domain.StockStore
	cache   *cache.ReadThrough
	faults  *faults.Settings
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewLedger(store domain.StockStore, c *cache.ReadThrough, f *faults.Settings, m *metrics.Metrics, tracer trace.Tracer) *Ledger {
	return &Ledger{store: store, cache: c, faults: f, metrics: m, tracer: tracer}
}

// Decrement 扣减库存，返回剩余库存。
func (l *Ledger) Decrement(ctx context.Context, menuID int64, qty int) (int, error) {
	return l.mutate(ctx, "decrement", menuID, qty, l.adjust(menuID, func(m *domain.MenuItem) error { return m.Decrement(qty) }))
}

// Increment 归还库存，返回剩余库存。
func (l *Ledger) Increment(ctx context.Context, menuID int64, qty int) (int, error) {
	return l.mutate(ctx, "increment", menuID, qty, l.adjust(menuID, func(m *domain.MenuItem) error { return m.Increment(qty) }))
}

// Restore 归还某笔订单占用的库存，同一个 (orderID, menuID) 重复调用只生效一次。
// orderID 为 0 时等同于 Increment。
func (l *Ledger) Restore(ctx context.Context, orderID, menuID int64, qty int) (int, error) {
	if orderID <= 0 {
		return l.Increment(ctx, menuID, qty)
	}
	return l.mutate(ctx, "increment", menuID, qty, func(ctx context.Context) (*domain.MenuItem, error) {
		item, applied, err := l.store.RestoreStock(ctx, orderID, menuID, qty)
		if err == nil && !applied {
			logger.Ctx(ctx).Info().Int64("order_id", orderID).Int64("menu_id", menuID).Msg("restore already applied, skipped")
		}
		return item, err
	})
}

type stockChange func(ctx context.Context) (*domain.MenuItem, error)

func (l *Ledger) adjust(menuID int64, fn func(*domain.MenuItem) error) stockChange {
	return func(ctx context.Context) (*domain.MenuItem, error) {
		return l.store.AdjustStock(ctx, menuID, fn)
	}
}

func (l *Ledger) mutate(ctx context.Context, op string, menuID int64, qty int, change stockChange) (int, error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+op)
	defer span.End()
	span.SetAttributes(attribute.Int64("menu.id", menuID), attribute.Int("quantity", qty))

	fail := func(result string, err error) (int, error) {
		l.metrics.ObserveLedger(op, result)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return 0, err
	}

	if qty <= 0 {
		return fail("invalid_quantity", domain.ErrInvalidQuantity)
	}

	// 故障注入：延迟发生在加锁之前，与网关层延迟的效果一致
	if err := l.faults.WaitInventoryDelay(ctx); err != nil {
		return fail("cancelled", errors.Wrap(err, "inventory delay interrupted"))
	}
	if l.faults.InventoryShouldFail() {
		return fail("injected_error", domain.ErrDownstreamUnavailable)
	}

	item, err := change(ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMenuNotFound):
			return fail("not_found", err)
		case errors.Is(err, domain.ErrInsufficientStock):
			return fail("insufficient_stock", err)
		default:
			logger.Ctx(ctx).Error().Err(err).Int64("menu_id", menuID).Str("op", op).Msg("stock mutation failed")
			return fail("error", err)
		}
	}

	// 只删不写，下一次读取从数据源重建
	l.cache.Invalidate(ctx, cache.MenuKey(menuID), cache.AllMenusKey)

	l.metrics.ObserveLedger(op, "ok")
	span.SetAttributes(attribute.Int("inventory.remaining", item.Stock))
	logger.Ctx(ctx).Info().
		Int64("menu_id", menuID).
		Str("op", op).
		Int("quantity", qty).
		Int("remaining", item.Stock).
		Bool("available", item.Available).
		Msg("inventory updated")
	return item.Stock, nil
}
