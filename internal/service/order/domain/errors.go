package domain

import "github.com/pkg/errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrUnauthorized          = errors.New("user validation failed")
	ErrMenuNotFound          = errors.New("menu not found")
	ErrInsufficientStock     = errors.New("not enough inventory")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrEmptyOrder            = errors.New("order must contain at least one item")
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
	ErrInvalidState          = errors.New("cannot change order in current status")
	ErrAlreadyCancelled      = errors.New("order is already cancelled")
	ErrOrderRejected         = errors.New("order rejected by admission policy")

	// ErrStatusConflict 表示条件更新时订单状态已被并发修改。
	ErrStatusConflict = errors.New("order status changed concurrently")
)
