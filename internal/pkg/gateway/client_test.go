package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckStatusConfirmedEncodings(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		confirmed bool
		amount    int64
	}{
		{
			name:      "top-level boolean status",
			body:      `{"status": true, "result": {"amount": 500}}`,
			confirmed: true,
			amount:    500,
		},
		{
			name:      "txnStatus COMPLETED",
			body:      `{"status": false, "result": {"txnStatus": "COMPLETED", "txnAmount": 250}}`,
			confirmed: true,
			amount:    250,
		},
		{
			name:      "txnStatus SUCCESS",
			body:      `{"result": {"txnStatus": "SUCCESS", "amount": 100, "txnAmount": 999}}`,
			confirmed: true,
			amount:    100,
		},
		{
			name:      "amount falls back to txnAmount",
			body:      `{"status": true, "result": {"amount": 0, "txnAmount": 750}}`,
			confirmed: true,
			amount:    750,
		},
		{
			name:      "lowercase success is not accepted",
			body:      `{"result": {"txnStatus": "success", "amount": 500}}`,
			confirmed: false,
			amount:    500,
		},
		{
			name:      "unconfirmed pending",
			body:      `{"status": false, "result": {"txnStatus": "PENDING"}}`,
			confirmed: false,
			amount:    0,
		},
		{
			name:      "missing result",
			body:      `{"status": false}`,
			confirmed: false,
			amount:    0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/orders/status" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				if r.Header.Get("Authorization") != "Bearer merchant-1" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			client := NewClient(Config{BaseURL: server.URL, MerchantID: "merchant-1", SecretKey: "sk"})
			resp, err := client.CheckStatus(context.Background(), "RECH-AB12")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Confirmed() != tc.confirmed {
				t.Fatalf("expected confirmed=%v, got %v", tc.confirmed, resp.Confirmed())
			}
			if resp.SettledAmount() != tc.amount {
				t.Fatalf("expected amount %d, got %d", tc.amount, resp.SettledAmount())
			}
		})
	}
}

func TestCheckStatusNon2xxIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, MerchantID: "merchant-1"})
	_, err := client.CheckStatus(context.Background(), "RECH-AB12")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://gateway.local", MerchantID: "merchant-1"})

	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{OrderID: "ORD-1", Amount: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{OrderID: " ", Amount: 100}); err == nil {
		t.Fatal("expected error for empty order_id")
	}
}

func TestCreateOrderSendsRemarks(t *testing.T) {
	var got CreateOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gateway_ref": "gw-123", "payment_url": "https://pay.example/gw-123", "status": "CREATED"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, MerchantID: "merchant-1"})
	out, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID: "RECH-AB12",
		Amount:  500,
		Remark1: RemarkWalletTopup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Remark1 != RemarkWalletTopup {
		t.Fatalf("expected remark1 %q, got %q", RemarkWalletTopup, got.Remark1)
	}
	if out.PaymentURL != "https://pay.example/gw-123" {
		t.Fatalf("unexpected payment url %q", out.PaymentURL)
	}
}

func TestWebhookSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"status":"SUCCESS","order_id":"RECH-AB12","remark1":"wallet-topup"}`)

	sig := GenerateSignature(payload, "secret-key")
	if sig == "" {
		t.Fatal("expected signature")
	}
	if !VerifySignature(payload, sig, "secret-key") {
		t.Fatal("expected signature to verify")
	}
	if VerifySignature(payload, sig, "other-key") {
		t.Fatal("expected verification to fail with wrong key")
	}
	if VerifySignature([]byte(`{}`), sig, "secret-key") {
		t.Fatal("expected verification to fail for altered payload")
	}
}
