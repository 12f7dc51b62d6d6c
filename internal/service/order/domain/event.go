// internal/service/order/domain/event.go
package domain

import "time"

const (
	EventOrderConfirmed     = "order.confirmed"
	EventOrderFailed        = "order.failed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent 是订单状态变化后对外发布的事件
type OrderEvent struct {
	Type          string        `json:"type"`
	OrderID       int64         `json:"order_id"`
	UserID        int64         `json:"user_id"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalPrice    int64         `json:"total_price"`
	At            time.Time     `json:"at"`
}

// NewOrderEvent 根据订单当前状态生成事件
func NewOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalPrice:    o.TotalPrice,
		At:            o.UpdatedAt,
	}
}

// CompensationFailure 记录一次失败的库存归还。它不影响订单结果，只用于上报和重试。
type CompensationFailure struct {
	OrderID  int64     `json:"order_id"`
	MenuID   int64     `json:"menu_id"`
	Quantity int       `json:"quantity"`
	Reason   string    `json:"reason"`
	Attempt  int       `json:"attempt"`
	At       time.Time `json:"at"`
}
