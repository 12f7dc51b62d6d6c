package port

import "context"

// AdmissionRequest 是准入规则可见的订单信息
type AdmissionRequest struct {
	UserID     int64
	TotalPrice int64
	ItemCount  int
	MenuIDs    []int64
}

// AdmissionPolicy 在订单落库前决定是否接单，拒绝时返回 domain.ErrOrderRejected。
type AdmissionPolicy interface {
	Admit(ctx context.Context, req AdmissionRequest) error
}
