package recharge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/middleware"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

// Handler for the wallet recharge API
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /wallet/recharges
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Create(r.Context(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrDisabled):
			response.Forbidden(w, "wallet recharge is currently disabled")
		case errors.Is(err, settlement.ErrUpstream):
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "payment gateway unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, result)
}

// Verify handles POST /wallet/recharges/{id}/verify, the client payment poll.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tx, result, err := h.service.Verify(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			response.NotFound(w, "transaction not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "transaction belongs to another user")
		case errors.Is(err, settlement.ErrUpstream):
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "payment gateway unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{
		"transaction": tx,
		"result":      result,
	})
}

// Balance handles GET /wallet/balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]int64{"balance": balance})
}

// Transactions handles GET /wallet/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.service.Transactions(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, txs)
}

// Routes returns wallet recharge router (requires auth)
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/recharges", h.Create)
	r.Post("/recharges/{id}/verify", h.Verify)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	return r
}
