package services

import "errors"

// Business outcomes callers are expected to handle.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrPaymentDeclined = errors.New("payment was declined")
	ErrItemUnavailable = errors.New("item is not available")
	ErrOutOfStock      = errors.New("item is out of stock")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("not allowed to act on this order")
	ErrInvalidInput    = errors.New("invalid input")
)

// Failures that are not the caller's fault. Their messages are safe to show.
var (
	ErrConcurrencyConflict = errors.New("the request clashed with another one, please retry")
	ErrPersistence         = errors.New("something went wrong, please try again")
)
