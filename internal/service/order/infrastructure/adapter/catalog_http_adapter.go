package adapter

import (
	"context"
	"fmt"
	"net/http"

	"fooddash/internal/pkg/httpclient"
	"fooddash/internal/service/order/domain/port"
)

// CatalogHTTPAdapter 实现了 port.CatalogService，读取餐厅服务的菜单接口。
type CatalogHTTPAdapter struct {
	client   *httpclient.Client
	resolver httpclient.Resolver
}

func NewCatalogHTTPAdapter(client *httpclient.Client, resolver httpclient.Resolver) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, resolver: resolver}
}

type menuResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func (a *CatalogHTTPAdapter) GetPrice(ctx context.Context, menuID int64) (*port.MenuQuote, error) {
	base, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, classifyRestaurantError(err)
	}
	var menu menuResponse
	if err := a.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf("%s/menus/%d", base, menuID), nil, nil, &menu); err != nil {
		return nil, classifyRestaurantError(err)
	}
	return &port.MenuQuote{MenuID: menuID, Name: menu.Name, Price: menu.Price}, nil
}
