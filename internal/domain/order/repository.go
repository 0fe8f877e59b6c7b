package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/topupstore/topup-api/internal/domain/ledger"
)

// SearchFilters narrow the admin order listing.
type SearchFilters struct {
	UserID        *uuid.UUID
	ProductID     string
	PaymentStatus ledger.Status
	TopupStatus   TopupStatus
	Limit         int
	Offset        int
}

// Repository defines order data access. The payment_status transitions are
// conditional updates mirroring the wallet ledger, so the settlement engine
// can drive both tables through the same store contract.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error)
	Search(ctx context.Context, filters SearchFilters) ([]*Order, error)

	ClaimPayment(ctx context.Context, id string, expected ledger.Status) (*Order, error)
	CommitPaid(ctx context.Context, id string) error
	RollbackPayment(ctx context.Context, id string, to ledger.Status) error
	FindPaymentStatus(ctx context.Context, id string) (ledger.Status, error)
	MarkPaymentFailed(ctx context.Context, id string) error

	SetGatewayRef(ctx context.Context, id string, ref string) error
	SetDelivered(ctx context.Context, id string, deliveryRef string) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates order repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, user_id, product_id, player_ref, amount, payment_method, payment_status, topup_status, gateway_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		o.ID,
		o.UserID,
		o.ProductID,
		o.PlayerRef,
		o.Amount,
		o.PaymentMethod,
		o.PaymentStatus,
		o.TopupStatus,
		o.GatewayRef,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := `SELECT * FROM orders WHERE id = $1`
	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT * FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	orders := []*Order{}
	if err := r.db.SelectContext(ctx, &orders, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *repository) Search(ctx context.Context, filters SearchFilters) ([]*Order, error) {
	query := `SELECT * FROM orders WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.UserID != nil {
		query += ` AND user_id = ` + arg(*filters.UserID)
	}
	if filters.ProductID != "" {
		query += ` AND product_id = ` + arg(filters.ProductID)
	}
	if filters.PaymentStatus != "" {
		query += ` AND payment_status = ` + arg(filters.PaymentStatus)
	}
	if filters.TopupStatus != "" {
		query += ` AND topup_status = ` + arg(filters.TopupStatus)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(filters.Offset)

	orders := []*Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	return orders, nil
}

// ClaimPayment is the order-side compare-and-swap: at most one concurrent
// caller can move the row into processing.
func (r *repository) ClaimPayment(ctx context.Context, id string, expected ledger.Status) (*Order, error) {
	query := `
		UPDATE orders
		SET payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $2
		RETURNING *
	`
	var o Order
	err := r.db.GetContext(ctx, &o, query, id, expected, ledger.StatusProcessing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) CommitPaid(ctx context.Context, id string) error {
	query := `
		UPDATE orders
		SET payment_status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = $3
	`
	return r.conditionalUpdate(ctx, query, id, ledger.StatusSuccess, ledger.StatusProcessing)
}

func (r *repository) RollbackPayment(ctx context.Context, id string, to ledger.Status) error {
	query := `
		UPDATE orders
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = $3
	`
	return r.conditionalUpdate(ctx, query, id, to, ledger.StatusProcessing)
}

func (r *repository) FindPaymentStatus(ctx context.Context, id string) (ledger.Status, error) {
	var status ledger.Status
	err := r.db.GetContext(ctx, &status, `SELECT payment_status FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *repository) MarkPaymentFailed(ctx context.Context, id string) error {
	query := `
		UPDATE orders
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status IN ($3, $4)
	`
	result, err := r.db.ExecContext(ctx, query, id, ledger.StatusFailed, ledger.StatusPending, ledger.StatusProcessing)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetGatewayRef(ctx context.Context, id string, ref string) error {
	query := `UPDATE orders SET gateway_ref = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, ref)
	return err
}

// SetDelivered is conditional on topup_status so a delivery retry racing a
// completed delivery cannot record twice.
func (r *repository) SetDelivered(ctx context.Context, id string, deliveryRef string) error {
	query := `
		UPDATE orders
		SET topup_status = $2, delivery_ref = $3, updated_at = NOW()
		WHERE id = $1 AND topup_status = $4
	`
	result, err := r.db.ExecContext(ctx, query, id, TopupDelivered, deliveryRef, TopupPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) conditionalUpdate(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
