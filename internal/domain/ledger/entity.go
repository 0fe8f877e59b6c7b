package ledger

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Kind describes the economic direction and origin of a transaction.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindPayment     Kind = "payment"
	KindRefund      Kind = "refund"
	KindAdminAdd    Kind = "admin_add"
	KindAdminRemove Kind = "admin_remove"
)

// SignedDelta returns the wallet balance increment for a settled amount of
// this kind. Deposits, refunds and admin grants credit the wallet; payments
// and admin removals debit it.
func (k Kind) SignedDelta(amount int64) int64 {
	switch k {
	case KindPayment, KindAdminRemove:
		return -amount
	default:
		return amount
	}
}

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindPayment, KindRefund, KindAdminAdd, KindAdminRemove:
		return true
	}
	return false
}

// Status represents transaction lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions
// outside of a manual admin override.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction is an append-only ledger row representing one attempted money
// movement. The ID is caller-visible and doubles as the idempotency key
// across every settlement entry point. BalanceBefore/BalanceAfter are audit
// snapshots written once when the row transitions to success and never
// updated afterwards.
type Transaction struct {
	ID            string         `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	Kind          Kind           `db:"kind" json:"kind"`
	Amount        int64          `db:"amount" json:"amount"`
	BalanceBefore sql.NullInt64  `db:"balance_before" json:"balance_before,omitempty"`
	BalanceAfter  sql.NullInt64  `db:"balance_after" json:"balance_after,omitempty"`
	Status        Status         `db:"status" json:"status"`
	Method        sql.NullString `db:"method" json:"method,omitempty"`
	Description   sql.NullString `db:"description" json:"description,omitempty"`
	GatewayRef    sql.NullString `db:"gateway_ref" json:"gateway_ref,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReference generates a caller-visible transaction id such as
// "RECH-7K2M9QAB". The alphabet omits easily-confused characters since
// these ids show up on invoices and in support tickets.
func NewReference(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is unrecoverable for id generation
		panic(err)
	}
	for i := range b {
		b[i] = refAlphabet[int(b[i])%len(refAlphabet)]
	}
	return prefix + "-" + string(b)
}
