package settlement

import (
	"context"

	"github.com/topupstore/topup-api/internal/domain/ledger"
)

// ledgerStore adapts the ledger repository to the engine's Store contract.
type ledgerStore struct {
	repo ledger.Repository
}

// NewLedgerStore wraps a ledger repository as an engine store.
func NewLedgerStore(repo ledger.Repository) Store {
	return &ledgerStore{repo: repo}
}

func (s *ledgerStore) Claim(ctx context.Context, id string, expected ledger.Status) (*Claimed, error) {
	tx, err := s.repo.Claim(ctx, id, expected)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	return &Claimed{
		ID:     tx.ID,
		UserID: tx.UserID,
		Kind:   tx.Kind,
		Amount: tx.Amount,
	}, nil
}

func (s *ledgerStore) CommitSuccess(ctx context.Context, id string, balanceBefore, balanceAfter int64) error {
	return s.repo.CommitSuccess(ctx, id, balanceBefore, balanceAfter)
}

func (s *ledgerStore) Rollback(ctx context.Context, id string, to ledger.Status) error {
	return s.repo.Rollback(ctx, id, to)
}

func (s *ledgerStore) FindStatus(ctx context.Context, id string) (ledger.Status, error) {
	return s.repo.FindStatus(ctx, id)
}

func (s *ledgerStore) MarkFailed(ctx context.Context, id string) error {
	return s.repo.MarkFailed(ctx, id)
}
