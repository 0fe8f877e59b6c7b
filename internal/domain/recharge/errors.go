package recharge

import "errors"

var (
	ErrDisabled = errors.New("wallet recharge is disabled")
	ErrNotOwner = errors.New("transaction belongs to another user")
)
