package domain

import "errors"

var (
	ErrMenuNotFound          = errors.New("menu not found")
	ErrRestaurantNotFound    = errors.New("restaurant not found")
	ErrInsufficientStock     = errors.New("not enough inventory")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidPrice          = errors.New("price must not be negative")
	ErrDownstreamUnavailable = errors.New("inventory temporarily unavailable")
)
