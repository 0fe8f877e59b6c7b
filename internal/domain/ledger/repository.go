package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SearchFilters provides admin-facing transaction filtering.
type SearchFilters struct {
	UserID   *uuid.UUID
	Kind     *Kind
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// Repository defines ledger data access. It is pure conditional
// persistence: no settlement decisions live here. Claim is the single
// serialization point for concurrent settlement attempts.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// Claim atomically transitions a row matching id and expected status to
	// processing and returns it. Returns nil, nil when no row matched, which
	// callers must treat as "someone else holds or held the claim".
	Claim(ctx context.Context, id string, expected Status) (*Transaction, error)
	// CommitSuccess finalizes a processing row with its balance snapshots.
	CommitSuccess(ctx context.Context, id string, balanceBefore, balanceAfter int64) error
	// Rollback releases a processing row back to the given status.
	Rollback(ctx context.Context, id string, to Status) error
	FindStatus(ctx context.Context, id string) (Status, error)
	// MarkFailed force-fails a row still in pending or processing.
	MarkFailed(ctx context.Context, id string) error
	SetGatewayRef(ctx context.Context, id string, ref string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error)
	Search(ctx context.Context, filters SearchFilters) ([]*Transaction, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates ledger repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tx *Transaction) error {
	if !tx.Kind.Valid() {
		return ErrInvalidKind
	}
	query := `
		INSERT INTO wallet_transactions (id, user_id, kind, amount, status, method, description, gateway_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Kind,
		tx.Amount,
		tx.Status,
		tx.Method,
		tx.Description,
		tx.GatewayRef,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Transaction, error) {
	query := `SELECT * FROM wallet_transactions WHERE id = $1`
	var tx Transaction
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// Claim relies on the conditional UPDATE being atomic: two concurrent
// claims for the same id cannot both match the expected status, so at most
// one caller receives the row.
func (r *repository) Claim(ctx context.Context, id string, expected Status) (*Transaction, error) {
	query := `
		UPDATE wallet_transactions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING *
	`
	var tx Transaction
	err := r.db.GetContext(ctx, &tx, query, id, expected, StatusProcessing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// CommitSuccess only touches rows in processing; the snapshot columns are
// written exactly once when the row becomes success.
func (r *repository) CommitSuccess(ctx context.Context, id string, balanceBefore, balanceAfter int64) error {
	query := `
		UPDATE wallet_transactions
		SET status = $2, balance_before = $3, balance_after = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, id, StatusSuccess, balanceBefore, balanceAfter, StatusProcessing)
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

func (r *repository) Rollback(ctx context.Context, id string, to Status) error {
	query := `
		UPDATE wallet_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, to, StatusProcessing)
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

func (r *repository) FindStatus(ctx context.Context, id string) (Status, error) {
	var status Status
	err := r.db.GetContext(ctx, &status, `SELECT status FROM wallet_transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *repository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE wallet_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`
	result, err := r.db.ExecContext(ctx, query, id, StatusFailed, StatusPending, StatusProcessing)
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
	query := `UPDATE wallet_transactions SET gateway_ref = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, ref)
	return err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT * FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	txs := make([]*Transaction, 0)
	err := r.db.SelectContext(ctx, &txs, query, userID, limit, offset)
	return txs, err
}

func (r *repository) Search(ctx context.Context, filters SearchFilters) ([]*Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT * FROM wallet_transactions WHERE 1=1`)

	args := make([]interface{}, 0, 6)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filters.UserID != nil {
		sb.WriteString(` AND user_id = ` + arg(*filters.UserID))
	}
	if filters.Kind != nil {
		sb.WriteString(` AND kind = ` + arg(*filters.Kind))
	}
	if filters.Status != nil {
		sb.WriteString(` AND status = ` + arg(*filters.Status))
	}
	if filters.DateFrom != nil {
		sb.WriteString(` AND created_at >= ` + arg(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		sb.WriteString(` AND created_at <= ` + arg(*filters.DateTo))
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	sb.WriteString(` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(filters.Offset))

	txs := make([]*Transaction, 0)
	err := r.db.SelectContext(ctx, &txs, sb.String(), args...)
	return txs, err
}
