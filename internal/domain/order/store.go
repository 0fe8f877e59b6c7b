package order

import (
	"context"
	"errors"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
)

// settlementStore adapts the order repository's payment_status machine to
// the settlement engine's store contract.
type settlementStore struct {
	repo Repository
}

// NewSettlementStore exposes the order payment machine to the engine.
func NewSettlementStore(repo Repository) settlement.Store {
	return &settlementStore{repo: repo}
}

func (s *settlementStore) Claim(ctx context.Context, id string, expected ledger.Status) (*settlement.Claimed, error) {
	o, err := s.repo.ClaimPayment(ctx, id, expected)
	if err != nil || o == nil {
		return nil, err
	}
	return &settlement.Claimed{
		ID:     o.ID,
		UserID: o.UserID,
		Kind:   ledger.KindPayment,
		Amount: o.Amount,
	}, nil
}

// CommitSuccess ignores the balance snapshots: marking an order paid has no
// wallet effect.
func (s *settlementStore) CommitSuccess(ctx context.Context, id string, _, _ int64) error {
	return s.repo.CommitPaid(ctx, id)
}

func (s *settlementStore) Rollback(ctx context.Context, id string, to ledger.Status) error {
	return s.repo.RollbackPayment(ctx, id, to)
}

func (s *settlementStore) FindStatus(ctx context.Context, id string) (ledger.Status, error) {
	status, err := s.repo.FindPaymentStatus(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", ledger.ErrNotFound
	}
	return status, err
}

func (s *settlementStore) MarkFailed(ctx context.Context, id string) error {
	err := s.repo.MarkPaymentFailed(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ledger.ErrNotFound
	}
	return err
}

// paidAction is the engine's terminal effect for orders: nothing beyond the
// commit itself. Delivery is progressed separately so a delivery failure
// never unwinds a confirmed payment.
type paidAction struct{}

// NewPaidAction returns the no-op terminal action for order settlement.
func NewPaidAction() settlement.Action {
	return paidAction{}
}

func (paidAction) Apply(context.Context, *settlement.Claimed, int64) (int64, int64, error) {
	return 0, 0, nil
}
