// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/pkg/errors"
)

// Order 是订单聚合的根实体
type Order struct {
	ID            int64
	UserID        int64
	Address       string
	Phone         string
	TotalPrice    int64
	Status        Status
	PaymentStatus PaymentStatus
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem 是订单行。价格和名称是下单时的快照，之后不再从菜单读取。
type OrderItem struct {
	ID       int64
	OrderID  int64
	MenuID   int64
	Quantity int
	Price    int64
	Name     string
}

// Subtotal 返回单价乘以数量
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// NewOrder 用已经报价的订单行创建一个 PENDING 订单，总价在这里一次性算好。
func NewOrder(userID int64, address, phone string, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	var total int64
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "menu %d", it.MenuID)
		}
		total += it.Subtotal()
	}
	now := time.Now().UTC()
	return &Order{
		UserID:        userID,
		Address:       address,
		Phone:         phone,
		TotalPrice:    total,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Items:         append([]OrderItem(nil), items...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Confirm 支付成功
func (o *Order) Confirm() error {
	if o.Status != StatusPending {
		return errors.Wrapf(ErrInvalidState, "confirm from %s", o.Status)
	}
	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentCompleted
	o.touch()
	return nil
}

// FailPayment 支付失败，订单进入 FAILED
func (o *Order) FailPayment() {
	o.Status = StatusFailed
	o.PaymentStatus = PaymentFailed
	o.touch()
}

// MarkAsFailed 库存扣减等前置步骤失败，支付状态保持不变
func (o *Order) MarkAsFailed() {
	o.Status = StatusFailed
	o.touch()
}

// Cancel 取消订单。已取消返回 ErrAlreadyCancelled；
// 待支付、配送中、已送达和失败的订单返回 ErrInvalidState，且不修改任何字段。
// PENDING 只出现在下单流程进行中，库存归属于该流程，不能从外部取消。
func (o *Order) Cancel() error {
	switch o.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusPending, StatusOutForDelivery, StatusDelivered, StatusFailed:
		return errors.Wrapf(ErrInvalidState, "cancel from %s", o.Status)
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

// Advance 沿配送流程前进一步
func (o *Order) Advance(next Status) error {
	if deliveryFlow[o.Status] != next {
		return errors.Wrapf(ErrInvalidState, "transition %s -> %s", o.Status, next)
	}
	o.Status = next
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
