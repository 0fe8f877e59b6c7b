package order

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
)

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	// MethodGateway collects payment through the external gateway; the
	// order settles via webhook or client poll.
	MethodGateway PaymentMethod = "gateway"
	// MethodWallet debits the buyer's wallet balance synchronously.
	MethodWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodGateway || m == MethodWallet
}

// TopupStatus tracks delivery of the purchased good, independently of
// payment. A failed delivery stays pending so it can be retried; the
// payment success is never unwound.
type TopupStatus string

const (
	TopupPending   TopupStatus = "pending"
	TopupDelivered TopupStatus = "delivered"
)

// Order is a product purchase. PaymentStatus runs the same
// pending/processing/success/failed machine as wallet transactions.
type Order struct {
	ID            string         `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	ProductID     string         `db:"product_id" json:"product_id"`
	PlayerRef     string         `db:"player_ref" json:"player_ref"`
	Amount        int64          `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod  `db:"payment_method" json:"payment_method"`
	PaymentStatus ledger.Status  `db:"payment_status" json:"payment_status"`
	TopupStatus   TopupStatus    `db:"topup_status" json:"topup_status"`
	GatewayRef    sql.NullString `db:"gateway_ref" json:"gateway_ref,omitempty"`
	DeliveryRef   sql.NullString `db:"delivery_ref" json:"delivery_ref,omitempty"`
	PaidAt        sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
