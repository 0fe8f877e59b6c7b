package settlement

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/pkg/gateway"
	"github.com/topupstore/topup-api/internal/pkg/response"
)

// WebhookHandler receives the gateway's server-to-server callbacks and
// routes them to the right state machine: wallet recharges or product
// orders, distinguished by remark1.
type WebhookHandler struct {
	walletEngine *Engine
	orderEngine  *Engine
	secretKey    string
	// onOrderSettled lets the order domain progress delivery after a
	// webhook settles an order's payment. Optional.
	onOrderSettled func(orderID string)
}

func NewWebhookHandler(walletEngine, orderEngine *Engine, secretKey string) *WebhookHandler {
	return &WebhookHandler{walletEngine: walletEngine, orderEngine: orderEngine, secretKey: secretKey}
}

// OnOrderSettled registers a callback fired after an order payment settles
// via webhook.
func (h *WebhookHandler) OnOrderSettled(fn func(orderID string)) {
	h.onOrderSettled = fn
}

// HandleGatewayWebhook handles POST /webhooks/gateway.
// Well-formed payloads always get HTTP 200, even when logically ignored,
// so the gateway does not mistake a business no-op for a delivery failure
// and retry forever.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "failed to read body")
		return
	}

	// Signature check when the gateway signs its callbacks. With no
	// configured secret the payload's asserted status is trusted as-is.
	if h.secretKey != "" {
		sig := r.Header.Get("X-Gateway-Signature")
		if !gateway.VerifySignature(body, sig, h.secretKey) {
			response.Unauthorized(w, "invalid webhook signature")
			return
		}
	}

	var payload gateway.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Malformed JSON is rejected with no side effects.
		response.BadRequest(w, "invalid JSON payload")
		return
	}
	if payload.OrderID == "" {
		response.BadRequest(w, "missing order_id")
		return
	}

	if payload.Status != gateway.WebhookStatusSuccess {
		// Accepted but ignored; any status other than the SUCCESS literal
		// causes no state change.
		log.Info().
			Str("order_id", payload.OrderID).
			Str("status", payload.Status).
			Msg("webhook ignored: non-success status")
		response.OK(w, map[string]string{"status": "ignored"})
		return
	}

	engine := h.orderEngine
	isOrder := true
	if payload.Remark1 == gateway.RemarkWalletTopup {
		engine = h.walletEngine
		isOrder = false
	}

	result, err := engine.Settle(r.Context(), payload.OrderID, Asserted{})
	if err != nil {
		// The claim was rolled back; report delivery as accepted so the
		// gateway's retry hits a retryable pending row.
		log.Error().Err(err).Str("order_id", payload.OrderID).Msg("webhook settlement failed")
		response.OK(w, map[string]string{"status": "error"})
		return
	}

	log.Info().
		Str("order_id", payload.OrderID).
		Str("outcome", string(result.Outcome)).
		Msg("webhook settlement processed")

	if isOrder && result.Outcome == OutcomeSettled && h.onOrderSettled != nil {
		h.onOrderSettled(payload.OrderID)
	}

	response.OK(w, map[string]string{"status": string(result.Outcome)})
}

// Routes returns webhook router (no auth; authenticity via signature)
func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/gateway", h.HandleGatewayWebhook)
	return r
}
