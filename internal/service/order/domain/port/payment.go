package port

import "context"

// PaymentGateway 只返回扣款是否成功。
type PaymentGateway interface {
	Charge(ctx context.Context, orderID int64, amount int64) bool
}
