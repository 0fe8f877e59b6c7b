package ledger

import "errors"

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrDuplicateID = errors.New("transaction id already exists")
	ErrInvalidKind = errors.New("invalid transaction kind")
)
