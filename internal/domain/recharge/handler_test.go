package recharge_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/recharge"
	"github.com/topupstore/topup-api/internal/middleware"
)

// stubLedger overrides only what these tests reach; the embedded interface
// panics on anything else, which would mean the handler took a path it
// must not take.
type stubLedger struct {
	ledger.Repository
	tx *ledger.Transaction
}

func (s *stubLedger) GetByID(_ context.Context, id string) (*ledger.Transaction, error) {
	if s.tx == nil || s.tx.ID != id {
		return nil, ledger.ErrNotFound
	}
	cp := *s.tx
	return &cp, nil
}

type staticFlags bool

func (f staticFlags) Bool(context.Context, string, bool) bool { return bool(f) }

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, "customer")
	return req.WithContext(ctx)
}

func TestCreateRejectedWhenDisabled(t *testing.T) {
	svc := recharge.NewService(&stubLedger{}, nil, nil, nil, staticFlags(false), recharge.ServiceConfig{Enabled: true})
	handler := recharge.NewHandler(svc)

	req := authedRequest(http.MethodPost, "/wallet/recharges", `{"amount":500}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	// Permanent decline: forbidden, and no row was written (the stub would
	// have panicked on Create).
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateValidatesAmount(t *testing.T) {
	svc := recharge.NewService(&stubLedger{}, nil, nil, nil, staticFlags(true), recharge.ServiceConfig{Enabled: true})
	handler := recharge.NewHandler(svc)

	for _, body := range []string{`{"amount":0}`, `{"amount":-100}`, `{}`} {
		req := authedRequest(http.MethodPost, "/wallet/recharges", body, uuid.New())
		rec := httptest.NewRecorder()
		handler.Create(rec, req)
		if rec.Code != http.StatusUnprocessableEntity && rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected validation rejection, got %d", body, rec.Code)
		}
	}
}

func TestCreateRequiresAuth(t *testing.T) {
	svc := recharge.NewService(&stubLedger{}, nil, nil, nil, staticFlags(true), recharge.ServiceConfig{Enabled: true})
	handler := recharge.NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/wallet/recharges", strings.NewReader(`{"amount":500}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestVerifyRejectsForeignTransaction(t *testing.T) {
	owner := uuid.New()
	stub := &stubLedger{tx: &ledger.Transaction{
		ID:     "RECH-AB12",
		UserID: owner,
		Kind:   ledger.KindDeposit,
		Amount: 500,
		Status: ledger.StatusPending,
	}}
	// Engine and gateway stay nil: an ownership rejection must never
	// reach a claim or an outbound call.
	svc := recharge.NewService(stub, nil, nil, nil, staticFlags(true), recharge.ServiceConfig{Enabled: true})

	r := recharge.NewHandler(svc).Routes()

	req := authedRequest(http.MethodPost, "/recharges/RECH-AB12/verify", "", uuid.New())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.tx.Status != ledger.StatusPending {
		t.Fatalf("transaction must stay pending, got %s", stub.tx.Status)
	}
}

func TestVerifyUnknownTransaction(t *testing.T) {
	svc := recharge.NewService(&stubLedger{}, nil, nil, nil, staticFlags(true), recharge.ServiceConfig{Enabled: true})

	r := recharge.NewHandler(svc).Routes()

	req := authedRequest(http.MethodPost, "/recharges/RECH-NOPE/verify", "", uuid.New())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
