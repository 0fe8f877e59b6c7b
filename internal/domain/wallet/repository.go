package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureWallet creates the wallet row if it does not exist yet.
func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM user_wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return balance, err
}

// ApplyDelta applies a signed increment to the wallet balance in a single
// atomic UPDATE and returns the balance before and after. There is no
// application-side read-modify-write: the database computes the new balance,
// so concurrent settlements cannot lose updates. The WHERE guard rejects a
// debit that would take the balance negative.
func (r *Repository) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64) (before int64, after int64, err error) {
	err = r.db.GetContext(ctx, &after, `
		UPDATE user_wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING balance
	`, userID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		// No row matched: either the wallet is missing or the debit would
		// overdraw. Disambiguate with a plain read.
		if _, lookupErr := r.GetBalance(ctx, userID); lookupErr != nil {
			return 0, 0, lookupErr
		}
		return 0, 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, 0, err
	}
	return after - delta, after, nil
}
