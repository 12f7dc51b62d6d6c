package port

import "context"

// MenuQuote 是下单时从菜单读取的价格快照
type MenuQuote struct {
	MenuID int64
	Name   string
	Price  int64
}

// CatalogService 是菜单服务的出站端口。
type CatalogService interface {
	// GetPrice 查询菜品价格，未知菜品返回 domain.ErrMenuNotFound。
	GetPrice(ctx context.Context, menuID int64) (*MenuQuote, error)
}
