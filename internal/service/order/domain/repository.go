// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 在一个本地事务中写入订单和全部订单行，并回填 ID。
	Create(ctx context.Context, order *Order) error

	// FindByID 返回包含订单行的完整订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id int64) (*Order, error)

	// ListByUser 按创建时间倒序返回用户的订单。
	ListByUser(ctx context.Context, userID int64) ([]Order, error)

	// UpdateStatus 仅当库中状态仍为 from 时写入订单的状态、支付状态和更新时间，
	// 否则返回 ErrStatusConflict。
	UpdateStatus(ctx context.Context, order *Order, from Status) error
}
