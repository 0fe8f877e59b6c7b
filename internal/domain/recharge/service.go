package recharge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/gateway"
)

// FlagReader answers runtime feature-flag lookups. The admin domain backs
// it with the feature_flags table; the config value is the fallback when
// no row exists.
type FlagReader interface {
	Bool(ctx context.Context, key string, fallback bool) bool
}

// FlagWalletRecharge gates recharge creation.
const FlagWalletRecharge = "wallet_recharge_enabled"

// ServiceConfig carries recharge policy and the URLs for gateway orders.
type ServiceConfig struct {
	Enabled     bool
	ReturnURL   string
	CallbackURL string
}

// Service owns the wallet recharge flow: create a pending deposit with a
// matching gateway order, and verify it on client polls.
type Service struct {
	ledgerRepo ledger.Repository
	wallets    *wallet.Service
	engine     *settlement.Engine
	gateway    *gateway.Client
	flags      FlagReader
	cfg        ServiceConfig
}

func NewService(
	ledgerRepo ledger.Repository,
	wallets *wallet.Service,
	engine *settlement.Engine,
	gatewayClient *gateway.Client,
	flags FlagReader,
	cfg ServiceConfig,
) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		wallets:    wallets,
		engine:     engine,
		gateway:    gatewayClient,
		flags:      flags,
		cfg:        cfg,
	}
}

func (s *Service) enabled(ctx context.Context) bool {
	if s.flags == nil {
		return s.cfg.Enabled
	}
	return s.flags.Bool(ctx, FlagWalletRecharge, s.cfg.Enabled)
}

// Create opens a pending deposit and a matching gateway order. When the
// feature flag is off this is a permanent decline: nothing is written.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, amount int64) (*CreateResponse, error) {
	if !s.enabled(ctx) {
		return nil, ErrDisabled
	}

	if err := s.wallets.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}

	tx := &ledger.Transaction{
		ID:     ledger.NewReference("RECH"),
		UserID: userID,
		Kind:   ledger.KindDeposit,
		Amount: amount,
		Status: ledger.StatusPending,
		Method: sql.NullString{String: "gateway", Valid: true},
	}
	if err := s.ledgerRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	resp, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:      amount,
		OrderID:     tx.ID,
		Description: fmt.Sprintf("wallet recharge %s", tx.ID),
		ReturnURL:   s.cfg.ReturnURL,
		CallbackURL: s.cfg.CallbackURL,
		Remark1:     gateway.RemarkWalletTopup,
	})
	if err != nil {
		// The pending row stays claimable; the client may retry checkout or
		// the row ages out operationally.
		log.Error().Err(err).Str("transaction_id", tx.ID).Msg("gateway order creation failed")
		return nil, fmt.Errorf("%w: %v", settlement.ErrUpstream, err)
	}
	if resp.GatewayRef != "" {
		if err := s.ledgerRepo.SetGatewayRef(ctx, tx.ID, resp.GatewayRef); err != nil {
			log.Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to store gateway ref")
		}
	}

	log.Info().
		Str("transaction_id", tx.ID).
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Msg("wallet recharge created")

	return &CreateResponse{
		TransactionID: tx.ID,
		Amount:        amount,
		Status:        string(ledger.StatusPending),
		PaymentURL:    resp.PaymentURL,
	}, nil
}

// Verify is the client poll: ownership is checked before any claim is
// attempted, then the transaction settles against the gateway's status.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, txID string) (*ledger.Transaction, *settlement.Result, error) {
	tx, err := s.ledgerRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	if tx.UserID != userID {
		return nil, nil, ErrNotOwner
	}

	result, err := s.engine.Settle(ctx, txID, settlement.NewGatewayConfirmer(s.gateway))
	if err != nil {
		return nil, nil, err
	}

	tx, err = s.ledgerRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	return tx, result, nil
}

// Balance returns the caller's wallet balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.wallets.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// Transactions returns the caller's wallet history, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	return s.ledgerRepo.ListByUser(ctx, userID, limit, offset)
}
