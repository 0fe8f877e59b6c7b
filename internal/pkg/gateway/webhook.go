package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// WebhookPayload is the server-to-server callback body posted by the
// gateway after checkout. Remark1 carries the value the merchant set at
// order creation and distinguishes wallet recharges from product orders.
type WebhookPayload struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount,omitempty"`
	Remark1 string `json:"remark1"`
	Remark2 string `json:"remark2,omitempty"`
}

// WebhookStatusSuccess is the only status value that triggers settlement.
// The comparison is case-sensitive per the gateway's documentation.
const WebhookStatusSuccess = "SUCCESS"

// Remark1 values set at order creation time.
const (
	RemarkWalletTopup  = "wallet-topup"
	RemarkProductOrder = "product-order"
)

// VerifySignature validates HMAC-SHA256 signature from gateway webhook
// Returns true if signature matches expected value
func VerifySignature(payload []byte, signature string, secretKey string) bool {
	if secretKey == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	expected := h.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(given, expected)
}

// GenerateSignature creates HMAC-SHA256 signature for testing
func GenerateSignature(payload []byte, secretKey string) string {
	if secretKey == "" {
		return ""
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
