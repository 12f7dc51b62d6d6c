package adapter

import (
	"context"
	"fmt"
	"net/http"

	"fooddash/internal/pkg/httpclient"
)

// InventoryHTTPAdapter 实现了 port.InventoryService 接口。
// 每次调用只涉及一个菜品，锁由餐厅服务的库存账本负责。
type InventoryHTTPAdapter struct {
	client   *httpclient.Client
	resolver httpclient.Resolver
}

// NewInventoryHTTPAdapter 创建一个新的库存服务适配器。
func NewInventoryHTTPAdapter(client *httpclient.Client, resolver httpclient.Resolver) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, resolver: resolver}
}

type inventoryRequest struct {
	Quantity int   `json:"quantity"`
	OrderID  int64 `json:"order_id,omitempty"`
}

type inventoryResponse struct {
	MenuID    int64 `json:"menu_id"`
	Remaining int   `json:"remaining_inventory"`
}

// Decrement 扣减库存
func (a *InventoryHTTPAdapter) Decrement(ctx context.Context, menuID int64, qty int) (int, error) {
	return a.call(ctx, "/inventory/%d", menuID, inventoryRequest{Quantity: qty})
}

// Increment 归还库存，餐厅服务按 (订单, 菜品) 去重
func (a *InventoryHTTPAdapter) Increment(ctx context.Context, orderID, menuID int64, qty int) (int, error) {
	return a.call(ctx, "/inventory/%d/restore", menuID, inventoryRequest{Quantity: qty, OrderID: orderID})
}

func (a *InventoryHTTPAdapter) call(ctx context.Context, pathFmt string, menuID int64, body inventoryRequest) (int, error) {
	base, err := a.resolver.Resolve(ctx)
	if err != nil {
		return 0, classifyRestaurantError(err)
	}
	var resp inventoryResponse
	url := base + fmt.Sprintf(pathFmt, menuID)
	if err := a.client.DoJSON(ctx, http.MethodPut, url, nil, body, &resp); err != nil {
		return 0, classifyRestaurantError(err)
	}
	return resp.Remaining, nil
}
