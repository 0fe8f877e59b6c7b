package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

// ListTransactions handles GET /admin/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ledger.SearchFilters{}

	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "invalid user_id")
			return
		}
		filters.UserID = &id
	}
	narrow := TransactionFilterRequest{Kind: q.Get("kind"), Status: q.Get("status")}
	if errs := validator.Validate(narrow); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	if narrow.Kind != "" {
		kind := ledger.Kind(narrow.Kind)
		filters.Kind = &kind
	}
	if narrow.Status != "" {
		status := ledger.Status(narrow.Status)
		filters.Status = &status
	}
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}

	txs, err := h.ledgerRepo.Search(r.Context(), filters)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, txs)
}

// GetTransaction handles GET /admin/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledgerRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			response.NotFound(w, "transaction not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, tx)
}

// SettleTransaction handles POST /admin/transactions/{id}/settle. The
// operator asserts the payment completed out-of-band; a failed row may be
// re-opened this way, which no automated path is allowed to do.
func (h *Handler) SettleTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	res, err := h.settleOverride(r, h.walletEngine, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			response.NotFound(w, "transaction not found")
			return
		}
		log.Error().Err(err).Str("transaction_id", id).Msg("admin settle override failed")
		response.InternalError(w)
		return
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "transaction.settle", "transaction", id, req.Reason,
		nil, map[string]interface{}{"outcome": res.Outcome})

	response.OK(w, res)
}

// FailTransaction handles POST /admin/transactions/{id}/fail
func (h *Handler) FailTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.walletEngine.ForceFail(r.Context(), id); err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			response.InternalError(w)
			return
		}
		// No row moved: either the id is unknown or the row is already
		// terminal.
		if _, lookupErr := h.ledgerRepo.GetByID(r.Context(), id); lookupErr != nil {
			response.NotFound(w, "transaction not found")
			return
		}
		response.Conflict(w, "transaction is already settled or failed")
		return
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "transaction.fail", "transaction", id, req.Reason, nil, nil)

	response.OK(w, map[string]string{"status": "failed"})
}

// settleOverride attempts the normal pending claim first, then the
// failed-row re-open that only operators may perform.
func (h *Handler) settleOverride(r *http.Request, engine *settlement.Engine, id string) (*settlement.Result, error) {
	res, err := engine.Settle(r.Context(), id, settlement.Asserted{})
	if err != nil {
		return nil, err
	}
	if res.Outcome == settlement.OutcomeAlreadyFailed {
		return engine.SettleFrom(r.Context(), id, ledger.StatusFailed, settlement.Asserted{})
	}
	return res, nil
}
