package domain

import "context"

// CatalogRepository 负责餐厅和菜品的读写（不含库存变更）。
type CatalogRepository interface {
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, r *Restaurant) error

	ListMenus(ctx context.Context) ([]MenuItem, error)
	ListMenusByRestaurant(ctx context.Context, restaurantID int64) ([]MenuItem, error)
	GetMenu(ctx context.Context, id int64) (*MenuItem, error)
	CreateMenu(ctx context.Context, m *MenuItem) error
	UpdateMenuPrice(ctx context.Context, id int64, price int64) error
	CountMenus(ctx context.Context) (int64, error)
}

// StockStore 提供单个菜品的加锁读-改-写。
// mutate 在持有该菜品的排他锁期间执行；返回错误时不落库。
// 锁只覆盖一个菜品，不同菜品之间互不阻塞。
type StockStore interface {
	AdjustStock(ctx context.Context, menuID int64, mutate func(*MenuItem) error) (*MenuItem, error)

	// RestoreStock 归还某笔订单占用的一个菜品的库存，同一个 (orderID, menuID) 只生效一次。
	// 重复调用不修改库存，返回当前值且 applied 为 false。
	RestoreStock(ctx context.Context, orderID, menuID int64, qty int) (item *MenuItem, applied bool, err error)
}

// Store 是餐厅服务需要的全部持久化能力。
type Store interface {
	CatalogRepository
	StockStore
}
