// internal/service/order/application/dto.go
package application

import (
	"time"

	"fooddash/internal/service/order/domain"
)

// OrderLine 是创建订单请求中的一行
type OrderLine struct {
	MenuID   int64 `json:"menu_id"`
	Quantity int   `json:"quantity"`
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	Token   string      `json:"-"`
	Items   []OrderLine `json:"items"`
	Address string      `json:"address"`
	Phone   string      `json:"phone"`
}

// OrderItemView 是订单行的对外表示
type OrderItemView struct {
	ID       int64  `json:"id"`
	MenuID   int64  `json:"menu_id"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Name     string `json:"name"`
}

// OrderView 是订单快照，也是缓存中保存的内容
type OrderView struct {
	ID            int64                `json:"id"`
	UserID        int64                `json:"user_id"`
	TotalPrice    int64                `json:"total_price"`
	Status        domain.Status        `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Address       string               `json:"address"`
	Phone         string               `json:"phone"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Items         []OrderItemView      `json:"items"`
}

// CreateOrderResult 携带主结果和补偿阶段被吞掉的失败
type CreateOrderResult struct {
	Order                *OrderView
	CompensationFailures []domain.CompensationFailure
}

// CancelOrderResult 是取消订单的结果
type CancelOrderResult struct {
	OrderID              int64
	CompensationFailures []domain.CompensationFailure
}

func ToOrderView(o *domain.Order) *OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemView{
			ID:       it.ID,
			MenuID:   it.MenuID,
			Quantity: it.Quantity,
			Price:    it.Price,
			Name:     it.Name,
		})
	}
	return &OrderView{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Address:       o.Address,
		Phone:         o.Phone,
		PaymentStatus: o.PaymentStatus,
		Items:         items,
	}
}
