package port

import "context"

// InventoryService 是库存账本的出站端口，每次调用只锁定一个菜品。
type InventoryService interface {
	Decrement(ctx context.Context, menuID int64, qty int) (int, error)
	// Increment 归还某笔订单占用的库存，同一个 (orderID, menuID) 只生效一次，重试是安全的。
	Increment(ctx context.Context, orderID, menuID int64, qty int) (int, error)
}
