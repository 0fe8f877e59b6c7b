package order

import "errors"

var (
	ErrNotFound      = errors.New("order not found")
	ErrNotOwner      = errors.New("order belongs to another user")
	ErrInvalidMethod = errors.New("invalid payment method")
)
