package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/catalog"
	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/order"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/gameapi"
	"github.com/topupstore/topup-api/internal/pkg/gateway"
)

// memLedgerRepo is an in-memory ledger.Repository; a mutex stands in for
// the database's conditional-update atomicity.
type memLedgerRepo struct {
	mu  sync.Mutex
	txs map[string]*ledger.Transaction
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{txs: make(map[string]*ledger.Transaction)}
}

func (r *memLedgerRepo) Create(_ context.Context, tx *ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txs[tx.ID]; ok {
		return ledger.ErrDuplicateID
	}
	cp := *tx
	r.txs[tx.ID] = &cp
	return nil
}

func (r *memLedgerRepo) GetByID(_ context.Context, id string) (*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *memLedgerRepo) Claim(_ context.Context, id string, expected ledger.Status) (*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || tx.Status != expected {
		return nil, nil
	}
	tx.Status = ledger.StatusProcessing
	cp := *tx
	return &cp, nil
}

func (r *memLedgerRepo) CommitSuccess(_ context.Context, id string, before, after int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || tx.Status != ledger.StatusProcessing {
		return ledger.ErrNotFound
	}
	tx.Status = ledger.StatusSuccess
	tx.BalanceBefore.Int64, tx.BalanceBefore.Valid = before, true
	tx.BalanceAfter.Int64, tx.BalanceAfter.Valid = after, true
	return nil
}

func (r *memLedgerRepo) Rollback(_ context.Context, id string, to ledger.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || tx.Status != ledger.StatusProcessing {
		return ledger.ErrNotFound
	}
	tx.Status = to
	return nil
}

func (r *memLedgerRepo) FindStatus(_ context.Context, id string) (ledger.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return "", ledger.ErrNotFound
	}
	return tx.Status, nil
}

func (r *memLedgerRepo) MarkFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || (tx.Status != ledger.StatusPending && tx.Status != ledger.StatusProcessing) {
		return ledger.ErrNotFound
	}
	tx.Status = ledger.StatusFailed
	return nil
}

func (r *memLedgerRepo) SetGatewayRef(_ context.Context, id string, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.txs[id]; ok {
		tx.GatewayRef.String, tx.GatewayRef.Valid = ref, true
	}
	return nil
}

func (r *memLedgerRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range r.txs {
		if tx.UserID == userID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) Search(context.Context, ledger.SearchFilters) ([]*ledger.Transaction, error) {
	return nil, nil
}

// memOrderRepo is an in-memory order.Repository.
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*order.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOrderRepo) Search(context.Context, order.SearchFilters) ([]*order.Order, error) {
	return nil, nil
}

func (r *memOrderRepo) ClaimPayment(_ context.Context, id string, expected ledger.Status) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != expected {
		return nil, nil
	}
	o.PaymentStatus = ledger.StatusProcessing
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) CommitPaid(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != ledger.StatusProcessing {
		return order.ErrNotFound
	}
	o.PaymentStatus = ledger.StatusSuccess
	o.PaidAt.Time, o.PaidAt.Valid = time.Now(), true
	return nil
}

func (r *memOrderRepo) RollbackPayment(_ context.Context, id string, to ledger.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != ledger.StatusProcessing {
		return order.ErrNotFound
	}
	o.PaymentStatus = to
	return nil
}

func (r *memOrderRepo) FindPaymentStatus(_ context.Context, id string) (ledger.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return "", order.ErrNotFound
	}
	return o.PaymentStatus, nil
}

func (r *memOrderRepo) MarkPaymentFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || (o.PaymentStatus != ledger.StatusPending && o.PaymentStatus != ledger.StatusProcessing) {
		return order.ErrNotFound
	}
	o.PaymentStatus = ledger.StatusFailed
	return nil
}

func (r *memOrderRepo) SetGatewayRef(_ context.Context, id string, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.GatewayRef.String, o.GatewayRef.Valid = ref, true
	}
	return nil
}

func (r *memOrderRepo) SetDelivered(_ context.Context, id string, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.TopupStatus != order.TopupPending {
		return order.ErrNotFound
	}
	o.TopupStatus = order.TopupDelivered
	o.DeliveryRef.String, o.DeliveryRef.Valid = ref, true
	return nil
}

// memCatalogRepo serves one fixed product.
type memCatalogRepo struct {
	product catalog.Product
}

func (r *memCatalogRepo) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	if id != r.product.ID {
		return nil, catalog.ErrProductNotFound
	}
	cp := r.product
	return &cp, nil
}

func (r *memCatalogRepo) ListProducts(context.Context, string) ([]*catalog.Product, error) {
	cp := r.product
	return []*catalog.Product{&cp}, nil
}

func (r *memCatalogRepo) ListOverrides(context.Context, string) ([]*catalog.PriceOverride, error) {
	return nil, nil
}

// memWalletAction applies signed deltas against an in-memory balance the
// way the real wallet credit action does against user_wallets.
type memWalletAction struct {
	mu      sync.Mutex
	balance int64
}

func (a *memWalletAction) Apply(_ context.Context, c *settlement.Claimed, amount int64) (int64, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delta := c.Kind.SignedDelta(amount)
	if a.balance+delta < 0 {
		return 0, 0, wallet.ErrInsufficientFunds
	}
	before := a.balance
	a.balance += delta
	return before, a.balance, nil
}

type env struct {
	userID     uuid.UUID
	ledgerRepo *memLedgerRepo
	orderRepo  *memOrderRepo
	walletAct  *memWalletAction
	service    *order.Service
}

func newEnv(t *testing.T, balance int64, gatewayURL, gameURL string) *env {
	t.Helper()

	ledgerRepo := newMemLedgerRepo()
	orderRepo := newMemOrderRepo()
	walletAct := &memWalletAction{balance: balance}

	walletEngine := settlement.NewEngine(settlement.NewLedgerStore(ledgerRepo), walletAct)
	orderEngine := settlement.NewEngine(order.NewSettlementStore(orderRepo), order.NewPaidAction())

	catalogSvc := catalog.NewService(&memCatalogRepo{product: catalog.Product{
		ID:     "mlbb-86",
		Game:   "mlbb",
		Name:   "86 Diamonds",
		Price:  1200,
		Active: true,
	}})

	gw := gateway.NewClient(gateway.Config{
		BaseURL:    gatewayURL,
		MerchantID: "M100",
		SecretKey:  "secret",
		Timeout:    2 * time.Second,
	})
	game := gameapi.NewClient(gameURL, "token", 2*time.Second)

	svc := order.NewService(orderRepo, catalogSvc, ledgerRepo, walletEngine, orderEngine, gw, game, order.ServiceConfig{
		ReturnURL:   "http://localhost:3000/orders",
		CallbackURL: "http://localhost:8080/api/v1/webhooks/gateway",
	})

	return &env{
		userID:     uuid.New(),
		ledgerRepo: ledgerRepo,
		orderRepo:  orderRepo,
		walletAct:  walletAct,
		service:    svc,
	}
}

func gameServerOK(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gameapi.DeliverResponse{Delivered: true, Reference: "PUB-REF-1"})
	}))
}

func TestCreateWalletPaidOrder(t *testing.T) {
	game := gameServerOK(t)
	defer game.Close()

	e := newEnv(t, 2000, "http://unused.invalid", game.URL)

	result, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodWallet)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	o := result.Order
	if o.PaymentStatus != ledger.StatusSuccess {
		t.Fatalf("expected payment success, got %s", o.PaymentStatus)
	}
	if o.TopupStatus != order.TopupDelivered {
		t.Fatalf("expected delivered, got %s", o.TopupStatus)
	}
	if o.Amount != 1200 {
		t.Fatalf("expected catalog price 1200, got %d", o.Amount)
	}
	if e.walletAct.balance != 800 {
		t.Fatalf("expected balance 800 after debit, got %d", e.walletAct.balance)
	}

	// The debit shows up in the ledger as a settled payment transaction.
	txs, err := e.ledgerRepo.ListByUser(context.Background(), e.userID, 20, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected one ledger transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Kind != ledger.KindPayment || tx.Status != ledger.StatusSuccess {
		t.Fatalf("unexpected transaction %s/%s", tx.Kind, tx.Status)
	}
	if tx.BalanceBefore.Int64 != 2000 || tx.BalanceAfter.Int64 != 800 {
		t.Fatalf("unexpected snapshots %d/%d", tx.BalanceBefore.Int64, tx.BalanceAfter.Int64)
	}
	if !strings.HasPrefix(tx.ID, "PAY-") {
		t.Fatalf("unexpected payment reference %s", tx.ID)
	}
}

func TestCreateWalletOrderInsufficientFunds(t *testing.T) {
	e := newEnv(t, 100, "http://unused.invalid", "http://unused.invalid")

	_, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodWallet)
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if e.walletAct.balance != 100 {
		t.Fatalf("balance must be untouched, got %d", e.walletAct.balance)
	}

	// Both the order and the payment transaction end up failed, not
	// pending, so nothing can settle them later.
	orders, _ := e.orderRepo.ListByUser(context.Background(), e.userID, 20, 0)
	if len(orders) != 1 || orders[0].PaymentStatus != ledger.StatusFailed {
		t.Fatalf("expected one failed order, got %+v", orders)
	}
	txs, _ := e.ledgerRepo.ListByUser(context.Background(), e.userID, 20, 0)
	if len(txs) != 1 || txs[0].Status != ledger.StatusFailed {
		t.Fatalf("expected one failed transaction, got %+v", txs)
	}
}

func TestCreateGatewayOrder(t *testing.T) {
	var captured gateway.CreateOrderRequest
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(gateway.CreateOrderResponse{
			GatewayRef: "GW-123",
			PaymentURL: "https://pay.example/checkout/GW-123",
		})
	}))
	defer gw.Close()

	e := newEnv(t, 0, gw.URL, "http://unused.invalid")

	result, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodGateway)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.PaymentURL == "" {
		t.Fatal("expected payment url")
	}
	if result.Order.PaymentStatus != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", result.Order.PaymentStatus)
	}
	if captured.Remark1 != gateway.RemarkProductOrder {
		t.Fatalf("expected product-order remark, got %q", captured.Remark1)
	}
	if captured.Amount != 1200 {
		t.Fatalf("expected server-side price 1200, got %d", captured.Amount)
	}
	if captured.OrderID != result.Order.ID {
		t.Fatalf("gateway order id %q != order id %q", captured.OrderID, result.Order.ID)
	}

	stored, _ := e.orderRepo.GetByID(context.Background(), result.Order.ID)
	if stored.GatewayRef.String != "GW-123" {
		t.Fatalf("expected stored gateway ref, got %+v", stored.GatewayRef)
	}
}

func TestVerifySettlesGatewayOrder(t *testing.T) {
	var statusCalls int
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/orders":
			json.NewEncoder(w).Encode(gateway.CreateOrderResponse{GatewayRef: "GW-1", PaymentURL: "https://pay.example/1"})
		case "/api/v1/orders/status":
			statusCalls++
			w.Write([]byte(`{"status":false,"result":{"txnStatus":"COMPLETED","amount":1200}}`))
		}
	}))
	defer gw.Close()
	game := gameServerOK(t)
	defer game.Close()

	e := newEnv(t, 0, gw.URL, game.URL)

	created, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodGateway)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// A stranger polling someone else's order is rejected before any
	// claim or gateway call.
	if _, _, err := e.service.Verify(context.Background(), uuid.New(), created.Order.ID); !errors.Is(err, order.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if statusCalls != 0 {
		t.Fatal("ownership rejection must not reach the gateway")
	}

	o, result, err := e.service.Verify(context.Background(), e.userID, created.Order.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result.Outcome != settlement.OutcomeSettled {
		t.Fatalf("expected settled, got %s", result.Outcome)
	}
	if o.PaymentStatus != ledger.StatusSuccess || o.TopupStatus != order.TopupDelivered {
		t.Fatalf("expected paid+delivered, got %s/%s", o.PaymentStatus, o.TopupStatus)
	}

	// Polling again is an idempotent read.
	_, result, err = e.service.Verify(context.Background(), e.userID, created.Order.ID)
	if err != nil {
		t.Fatalf("second verify failed: %v", err)
	}
	if result.Outcome != settlement.OutcomeAlreadySettled {
		t.Fatalf("expected already_settled, got %s", result.Outcome)
	}
}

func TestDeliveryFailureKeepsPaymentSuccess(t *testing.T) {
	game := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "publisher down", http.StatusBadGateway)
	}))
	defer game.Close()

	e := newEnv(t, 5000, "http://unused.invalid", game.URL)

	result, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodWallet)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.Order.PaymentStatus != ledger.StatusSuccess {
		t.Fatalf("payment must stand despite delivery failure, got %s", result.Order.PaymentStatus)
	}
	if result.Order.TopupStatus != order.TopupPending {
		t.Fatalf("expected pending topup for retry, got %s", result.Order.TopupStatus)
	}
	if e.walletAct.balance != 3800 {
		t.Fatalf("expected debited balance 3800, got %d", e.walletAct.balance)
	}
}

func TestRetryDeliveryAfterPublisherRecovers(t *testing.T) {
	var healthy bool
	game := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, "publisher down", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(gameapi.DeliverResponse{Delivered: true, Reference: "PUB-REF-2"})
	}))
	defer game.Close()

	e := newEnv(t, 5000, "http://unused.invalid", game.URL)

	created, err := e.service.Create(context.Background(), e.userID, "mlbb-86", "player#42", order.MethodWallet)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Order.TopupStatus != order.TopupPending {
		t.Fatalf("expected pending topup, got %s", created.Order.TopupStatus)
	}

	healthy = true
	o, err := e.service.RetryDelivery(context.Background(), created.Order.ID)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if o.TopupStatus != order.TopupDelivered {
		t.Fatalf("expected delivered after retry, got %s", o.TopupStatus)
	}
	if o.DeliveryRef.String != "PUB-REF-2" {
		t.Fatalf("expected delivery ref, got %+v", o.DeliveryRef)
	}
}
