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
	"github.com/topupstore/topup-api/internal/domain/order"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

// ListOrders handles GET /admin/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := order.SearchFilters{}

	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "invalid user_id")
			return
		}
		filters.UserID = &id
	}
	filters.ProductID = q.Get("product_id")
	if v := q.Get("payment_status"); v != "" {
		filters.PaymentStatus = ledger.Status(v)
	}
	if v := q.Get("topup_status"); v != "" {
		filters.TopupStatus = order.TopupStatus(v)
	}
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}

	orders, err := h.orderRepo.Search(r.Context(), filters)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

// GetOrder handles GET /admin/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, o)
}

// SettleOrder handles POST /admin/orders/{id}/settle
func (h *Handler) SettleOrder(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.settleOverride(r, h.orderEngine, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		log.Error().Err(err).Str("order_id", id).Msg("admin order settle override failed")
		response.InternalError(w)
		return
	}

	if res.Outcome == settlement.OutcomeSettled {
		h.orderSvc.HandleSettled(id)
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "order.settle", "order", id, req.Reason,
		nil, map[string]interface{}{"outcome": res.Outcome})

	response.OK(w, res)
}

// FailOrder handles POST /admin/orders/{id}/fail
func (h *Handler) FailOrder(w http.ResponseWriter, r *http.Request) {
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

	if err := h.orderEngine.ForceFail(r.Context(), id); err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			response.InternalError(w)
			return
		}
		if _, lookupErr := h.orderRepo.GetByID(r.Context(), id); lookupErr != nil {
			response.NotFound(w, "order not found")
			return
		}
		response.Conflict(w, "order payment is already settled or failed")
		return
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "order.fail", "order", id, req.Reason, nil, nil)

	response.OK(w, map[string]string{"status": "failed"})
}

// RetryDelivery handles POST /admin/orders/{id}/retry-delivery
func (h *Handler) RetryDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orderSvc.RetryDelivery(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w)
		return
	}

	h.service.LogAction(r.Context(), GetAdminID(r.Context()), "order.retry_delivery", "order", id, "",
		nil, map[string]interface{}{"topup_status": o.TopupStatus})

	response.OK(w, o)
}
