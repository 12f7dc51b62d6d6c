// internal/service/order/domain/state.go
package domain

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPending        Status = "pending"          // 已落库，库存尚未扣减完成
	StatusConfirmed      Status = "confirmed"        // 库存已扣减，支付成功
	StatusPreparing      Status = "preparing"        // 商家备餐中
	StatusOutForDelivery Status = "out_for_delivery" // 配送中
	StatusDelivered      Status = "delivered"        // 已送达
	StatusCancelled      Status = "cancelled"        // 已取消
	StatusFailed         Status = "failed"           // 创建流程失败
)

// PaymentStatus 是订单的支付状态
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// deliveryFlow 是确认之后的配送推进顺序，每个状态只能前进一步。
var deliveryFlow = map[Status]Status{
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// ParseStatus 校验外部传入的状态字符串。
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery,
		StatusDelivered, StatusCancelled, StatusFailed:
		return st, true
	}
	return "", false
}

// IsTerminal 表示创建或取消流程结束后不会再自动变化的状态。
func (s Status) IsTerminal() bool {
	return s != StatusPending
}
