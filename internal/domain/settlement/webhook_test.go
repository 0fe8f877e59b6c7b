package settlement_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/pkg/gateway"
)

func postWebhook(t *testing.T, h *settlement.WebhookHandler, body []byte, sign string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign != "" {
		req.Header.Set("X-Gateway-Signature", gateway.GenerateSignature(body, sign))
	}
	rec := httptest.NewRecorder()
	h.HandleGatewayWebhook(rec, req)
	return rec
}

func TestWebhookCreditsWalletRecharge(t *testing.T) {
	walletStore := newFakeStore()
	walletAction := &fakeAction{}
	orderStore := newFakeStore()
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, walletAction),
		settlement.NewEngine(orderStore, &fakeAction{}),
		"",
	)

	walletStore.put("RECH-AB12", uuid.New(), ledger.KindDeposit, 500, ledger.StatusPending)

	body := []byte(`{"status":"SUCCESS","order_id":"RECH-AB12","remark1":"wallet-topup"}`)
	rec := postWebhook(t, handler, body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if walletStore.statusOf("RECH-AB12") != ledger.StatusSuccess {
		t.Fatalf("expected success, got %s", walletStore.statusOf("RECH-AB12"))
	}
	if walletAction.balance != 500 {
		t.Fatalf("expected balance 500, got %d", walletAction.balance)
	}
}

func TestWebhookRoutesOrdersByRemark(t *testing.T) {
	walletStore := newFakeStore()
	orderStore := newFakeStore()
	orderAction := &fakeAction{}
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, &fakeAction{}),
		settlement.NewEngine(orderStore, orderAction),
		"",
	)

	var settledOrder string
	handler.OnOrderSettled(func(orderID string) { settledOrder = orderID })

	orderStore.put("ORD-7XK2", uuid.New(), ledger.KindDeposit, 1200, ledger.StatusPending)

	body := []byte(`{"status":"SUCCESS","order_id":"ORD-7XK2","remark1":"product-order"}`)
	rec := postWebhook(t, handler, body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if orderStore.statusOf("ORD-7XK2") != ledger.StatusSuccess {
		t.Fatalf("expected order settled, got %s", orderStore.statusOf("ORD-7XK2"))
	}
	if settledOrder != "ORD-7XK2" {
		t.Fatalf("expected delivery callback for ORD-7XK2, got %q", settledOrder)
	}
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	walletStore := newFakeStore()
	walletAction := &fakeAction{}
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, walletAction),
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		"",
	)

	walletStore.put("RECH-AB12", uuid.New(), ledger.KindDeposit, 500, ledger.StatusPending)

	body := []byte(`{"status":"SUCCESS","order_id":"RECH-AB12","remark1":"wallet-topup"}`)
	for i := 0; i < 3; i++ {
		rec := postWebhook(t, handler, body, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}

	if walletAction.applied != 1 {
		t.Fatalf("expected exactly one credit across duplicate deliveries, got %d", walletAction.applied)
	}
}

func TestWebhookIgnoresNonSuccessStatus(t *testing.T) {
	walletStore := newFakeStore()
	walletAction := &fakeAction{}
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, walletAction),
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		"",
	)

	walletStore.put("RECH-AB12", uuid.New(), ledger.KindDeposit, 500, ledger.StatusPending)

	for _, status := range []string{"FAILED", "PENDING", "success", "Success"} {
		body := []byte(`{"status":"` + status + `","order_id":"RECH-AB12","remark1":"wallet-topup"}`)
		rec := postWebhook(t, handler, body, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %q: expected 200, got %d", status, rec.Code)
		}
	}

	if walletAction.applied != 0 {
		t.Fatal("non-success statuses must not change state")
	}
	if walletStore.statusOf("RECH-AB12") != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", walletStore.statusOf("RECH-AB12"))
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		"",
	)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"status":"SUCCESS","order_id"`},
		{"missing order id", `{"status":"SUCCESS","remark1":"wallet-topup"}`},
	}
	for _, tc := range cases {
		rec := postWebhook(t, handler, []byte(tc.body), "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestWebhookSignatureEnforcedWhenConfigured(t *testing.T) {
	walletStore := newFakeStore()
	walletAction := &fakeAction{}
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, walletAction),
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		"webhook-secret",
	)

	walletStore.put("RECH-AB12", uuid.New(), ledger.KindDeposit, 500, ledger.StatusPending)
	body := []byte(`{"status":"SUCCESS","order_id":"RECH-AB12","remark1":"wallet-topup"}`)

	// Unsigned and wrongly-signed deliveries are rejected before parsing.
	rec := postWebhook(t, handler, body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned: expected 401, got %d", rec.Code)
	}
	rec = postWebhook(t, handler, body, "wrong-secret")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature: expected 401, got %d", rec.Code)
	}
	if walletAction.applied != 0 {
		t.Fatal("rejected deliveries must not change state")
	}

	rec = postWebhook(t, handler, body, "webhook-secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("signed: expected 200, got %d", rec.Code)
	}
	if walletStore.statusOf("RECH-AB12") != ledger.StatusSuccess {
		t.Fatal("signed delivery should settle the transaction")
	}
}

func TestWebhookRetryAfterTransientFailure(t *testing.T) {
	walletStore := newFakeStore()
	walletAction := &fakeAction{err: context.DeadlineExceeded}
	handler := settlement.NewWebhookHandler(
		settlement.NewEngine(walletStore, walletAction),
		settlement.NewEngine(newFakeStore(), &fakeAction{}),
		"",
	)

	walletStore.put("RECH-AB12", uuid.New(), ledger.KindDeposit, 500, ledger.StatusPending)
	body := []byte(`{"status":"SUCCESS","order_id":"RECH-AB12","remark1":"wallet-topup"}`)

	// First delivery fails mid-settlement; the row rolls back to pending
	// and the handler still returns 200 so the gateway retries.
	rec := postWebhook(t, handler, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on failed settlement, got %d", rec.Code)
	}
	if walletStore.statusOf("RECH-AB12") != ledger.StatusPending {
		t.Fatalf("expected pending after rollback, got %s", walletStore.statusOf("RECH-AB12"))
	}

	walletAction.err = nil
	rec = postWebhook(t, handler, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d", rec.Code)
	}
	if walletStore.statusOf("RECH-AB12") != ledger.StatusSuccess {
		t.Fatal("retry should settle the transaction")
	}
}
