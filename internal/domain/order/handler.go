package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/catalog"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/middleware"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

// Handler for the order API
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /orders
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

	result, err := h.service.Create(r.Context(), userID, req.ProductID, req.PlayerRef, PaymentMethod(req.PaymentMethod))
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			response.NotFound(w, "product not found")
		case errors.Is(err, catalog.ErrProductInactive):
			response.Conflict(w, "product is not available")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			response.Conflict(w, "insufficient wallet balance")
		case errors.Is(err, settlement.ErrUpstream):
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "payment gateway unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, result)
}

// Get handles GET /orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	o, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "order belongs to another user")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, o)
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.service.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

// Verify handles POST /orders/{id}/verify, the client payment poll.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	o, result, err := h.service.Verify(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(w, "order belongs to another user")
		case errors.Is(err, settlement.ErrUpstream):
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "payment gateway unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, map[string]interface{}{
		"order":  o,
		"result": result,
	})
}

// Routes returns order router (requires auth)
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/verify", h.Verify)
	return r
}
