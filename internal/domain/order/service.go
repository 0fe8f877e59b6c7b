package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/domain/catalog"
	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/gameapi"
	"github.com/topupstore/topup-api/internal/pkg/gateway"
)

// ServiceConfig carries the URLs embedded in gateway order requests.
type ServiceConfig struct {
	ReturnURL   string
	CallbackURL string
}

// Service owns order lifecycle: creation with server-side pricing, payment
// via gateway or wallet balance, and delivery of the purchased top-up.
type Service struct {
	repo         Repository
	catalog      *catalog.Service
	ledgerRepo   ledger.Repository
	walletEngine *settlement.Engine
	orderEngine  *settlement.Engine
	gateway      *gateway.Client
	game         *gameapi.Client
	cfg          ServiceConfig
}

func NewService(
	repo Repository,
	catalogSvc *catalog.Service,
	ledgerRepo ledger.Repository,
	walletEngine *settlement.Engine,
	orderEngine *settlement.Engine,
	gatewayClient *gateway.Client,
	gameClient *gameapi.Client,
	cfg ServiceConfig,
) *Service {
	return &Service{
		repo:         repo,
		catalog:      catalogSvc,
		ledgerRepo:   ledgerRepo,
		walletEngine: walletEngine,
		orderEngine:  orderEngine,
		gateway:      gatewayClient,
		game:         gameClient,
		cfg:          cfg,
	}
}

// CreateResult is what order creation hands back to the client. PaymentURL
// is set only for gateway orders.
type CreateResult struct {
	Order      *Order `json:"order"`
	PaymentURL string `json:"payment_url,omitempty"`
}

// Create places an order for a catalog product. The price always comes
// from the catalog, never from the client.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, productID, playerRef string, method PaymentMethod) (*CreateResult, error) {
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	product, err := s.catalog.ResolveForPurchase(ctx, productID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:            ledger.NewReference("ORD"),
		UserID:        userID,
		ProductID:     product.ID,
		PlayerRef:     playerRef,
		Amount:        product.Price,
		PaymentMethod: method,
		PaymentStatus: ledger.StatusPending,
		TopupStatus:   TopupPending,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", o.ID).
		Str("user_id", userID.String()).
		Str("product_id", product.ID).
		Int64("amount", o.Amount).
		Str("method", string(method)).
		Msg("order created")

	if method == MethodWallet {
		if err := s.payFromWallet(ctx, o); err != nil {
			return nil, err
		}
		s.deliver(ctx, o.ID)
		paid, err := s.repo.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		return &CreateResult{Order: paid}, nil
	}

	resp, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:      o.Amount,
		OrderID:     o.ID,
		Description: fmt.Sprintf("%s x1 for %s", product.Name, playerRef),
		ReturnURL:   s.cfg.ReturnURL,
		CallbackURL: s.cfg.CallbackURL,
		Remark1:     gateway.RemarkProductOrder,
		Remark2:     product.ID,
	})
	if err != nil {
		// The pending order stays; the client can retry payment later.
		log.Error().Err(err).Str("order_id", o.ID).Msg("gateway order creation failed")
		return nil, fmt.Errorf("%w: %v", settlement.ErrUpstream, err)
	}
	if resp.GatewayRef != "" {
		if err := s.repo.SetGatewayRef(ctx, o.ID, resp.GatewayRef); err != nil {
			log.Error().Err(err).Str("order_id", o.ID).Msg("failed to store gateway ref")
		}
		o.GatewayRef = sql.NullString{String: resp.GatewayRef, Valid: true}
	}

	return &CreateResult{Order: o, PaymentURL: resp.PaymentURL}, nil
}

// payFromWallet debits the buyer through a ledger payment transaction so
// the spend shows up in their transaction history with balance snapshots,
// then marks the order paid through the order machine.
func (s *Service) payFromWallet(ctx context.Context, o *Order) error {
	tx := &ledger.Transaction{
		ID:          ledger.NewReference("PAY"),
		UserID:      o.UserID,
		Kind:        ledger.KindPayment,
		Amount:      o.Amount,
		Status:      ledger.StatusPending,
		Method:      sql.NullString{String: string(MethodWallet), Valid: true},
		Description: sql.NullString{String: "payment for order " + o.ID, Valid: true},
	}
	if err := s.ledgerRepo.Create(ctx, tx); err != nil {
		return err
	}

	if _, err := s.walletEngine.Settle(ctx, tx.ID, settlement.Asserted{}); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			// The debit never happened; close both rows as failed.
			if ffErr := s.walletEngine.ForceFail(ctx, tx.ID); ffErr != nil {
				log.Error().Err(ffErr).Str("transaction_id", tx.ID).Msg("failed to fail wallet payment")
			}
			if ffErr := s.repo.MarkPaymentFailed(ctx, o.ID); ffErr != nil {
				log.Error().Err(ffErr).Str("order_id", o.ID).Msg("failed to fail order payment")
			}
			return wallet.ErrInsufficientFunds
		}
		return err
	}

	result, err := s.orderEngine.Settle(ctx, o.ID, settlement.Asserted{})
	if err != nil {
		// Wallet already debited but the order could not be marked paid.
		// The payment transaction stands; flag for manual reconciliation.
		log.Error().Err(err).
			Str("order_id", o.ID).
			Str("transaction_id", tx.ID).
			Msg("wallet debited but order mark-paid failed")
		return err
	}
	if !result.Settled() {
		return fmt.Errorf("order %s payment not settled: %s", o.ID, result.Outcome)
	}
	return nil
}

// Verify is the client poll: re-check the gateway and settle the order if
// payment completed. Ownership is enforced before any claim is attempted.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, orderID string) (*Order, *settlement.Result, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.UserID != userID {
		return nil, nil, ErrNotOwner
	}

	result, err := s.orderEngine.Settle(ctx, orderID, settlement.NewGatewayConfirmer(s.gateway))
	if err != nil {
		return nil, nil, err
	}
	if result.Outcome == settlement.OutcomeSettled {
		s.deliver(ctx, orderID)
	}

	o, err = s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, result, nil
}

// Get returns an order, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// ListByUser returns the caller's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// HandleSettled progresses delivery after a webhook settles an order's
// payment. Runs with a background context because the webhook response
// must not wait on the publisher.
func (s *Service) HandleSettled(orderID string) {
	go s.deliver(context.Background(), orderID)
}

// RetryDelivery re-attempts delivery for a paid order stuck in pending
// topup. Admin recovery path.
func (s *Service) RetryDelivery(ctx context.Context, orderID string) (*Order, error) {
	s.deliver(ctx, orderID)
	return s.repo.GetByID(ctx, orderID)
}

// deliver pushes the purchased top-up to the publisher. Failure leaves
// topup_status pending for retry; the confirmed payment stands either way.
func (s *Service) deliver(ctx context.Context, orderID string) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("delivery: order lookup failed")
		return
	}
	if o.PaymentStatus != ledger.StatusSuccess || o.TopupStatus != TopupPending {
		return
	}

	resp, err := s.game.Deliver(ctx, gameapi.DeliverPayload{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		PlayerRef: o.PlayerRef,
		Quantity:  1,
	})
	if err != nil || !resp.Delivered {
		log.Error().Err(err).Str("order_id", o.ID).Msg("top-up delivery failed, will retry")
		return
	}

	if err := s.repo.SetDelivered(ctx, o.ID, resp.Reference); err != nil {
		if errors.Is(err, ErrNotFound) {
			// A concurrent retry already recorded the delivery.
			return
		}
		log.Error().Err(err).Str("order_id", o.ID).Msg("failed to record delivery")
		return
	}

	log.Info().
		Str("order_id", o.ID).
		Str("delivery_ref", resp.Reference).
		Msg("top-up delivered")
}
