package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's spendable balance in platform currency units.
// The balance is mutated exclusively through Repository.ApplyDelta; every
// mutation is tied 1:1 to a successful ledger settlement.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
