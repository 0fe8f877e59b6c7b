package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/user"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

type adminUserView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        user.Role `json:"role"`
	IsBlocked   bool      `json:"is_blocked"`
	Balance     int64     `json:"balance"`
	LastLoginAt *string   `json:"last_login_at,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

func (h *Handler) userView(r *http.Request, u *user.User) adminUserView {
	v := adminUserView{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IsBlocked: u.IsBlocked,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if u.LastLoginAt.Valid {
		s := u.LastLoginAt.Time.Format("2006-01-02T15:04:05Z07:00")
		v.LastLoginAt = &s
	}
	// Missing wallet row reads as zero, same as the customer-facing API.
	if bal, err := h.wallets.GetBalance(r.Context(), u.ID); err == nil {
		v.Balance = bal
	}
	return v
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	users, err := h.userRepo.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]adminUserView, len(users))
	for i, u := range users {
		out[i] = h.userView(r, u)
	}
	response.OK(w, out)
}

// GetUser handles GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, h.userView(r, u))
}

// BlockUser handles PATCH /admin/users/{id}/block
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	var req BlockUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	if err := h.userRepo.UpdateBlocked(r.Context(), id, req.IsBlocked); err != nil {
		response.InternalError(w)
		return
	}

	action := "user.block"
	if !req.IsBlocked {
		action = "user.unblock"
	}
	h.service.LogAction(r.Context(), GetAdminID(r.Context()), action, "user", id.String(), req.Reason,
		map[string]bool{"is_blocked": u.IsBlocked},
		map[string]bool{"is_blocked": req.IsBlocked})

	u.IsBlocked = req.IsBlocked
	response.OK(w, h.userView(r, u))
}

// AdjustBalance handles POST /admin/users/{id}/balance. The adjustment
// is a regular ledger transaction pushed through the settlement engine,
// so it leaves the same audit trail as any deposit or payment.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if _, err := h.userRepo.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}
	if err := h.wallets.EnsureWallet(r.Context(), id); err != nil {
		response.InternalError(w)
		return
	}

	kind := ledger.KindAdminAdd
	if req.Direction == "remove" {
		kind = ledger.KindAdminRemove
	}

	tx := &ledger.Transaction{
		ID:     ledger.NewReference("ADJ"),
		UserID: id,
		Kind:   kind,
		Amount: req.Amount,
		Status: ledger.StatusPending,
		Method: sql.NullString{String: "admin", Valid: true},
	}
	if req.Description != "" {
		tx.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if err := h.ledgerRepo.Create(r.Context(), tx); err != nil {
		response.InternalError(w)
		return
	}

	res, err := h.walletEngine.Settle(r.Context(), tx.ID, settlement.Asserted{})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			response.Conflict(w, "insufficient funds for removal")
			return
		}
		response.InternalError(w)
		return
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "user.balance_adjust", "transaction", tx.ID, req.Reason,
		nil, map[string]interface{}{
			"user_id":   id,
			"direction": req.Direction,
			"amount":    req.Amount,
		})

	response.OK(w, map[string]interface{}{
		"transaction_id": tx.ID,
		"outcome":        res.Outcome,
		"new_balance":    res.NewBalance,
	})
}
