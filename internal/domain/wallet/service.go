package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service is the balance accessor used by the settlement engine. It owns no
// settlement decisions; it only applies the signed increments the engine
// hands it.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	return s.repo.EnsureWallet(ctx, userID)
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// ApplyDelta applies a signed balance increment and returns the before and
// after snapshots for the ledger audit columns.
func (s *Service) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64) (int64, int64, error) {
	if delta == 0 {
		return 0, 0, ErrInvalidAmount
	}
	before, after, err := s.repo.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return 0, 0, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Int64("delta", delta).
		Int64("balance_after", after).
		Msg("wallet balance updated")
	return before, after, nil
}
