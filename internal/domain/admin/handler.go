package admin

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/order"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/user"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/response"
	"github.com/topupstore/topup-api/internal/pkg/validator"
)

// Handler for the admin panel API
type Handler struct {
	service      *Service
	jwtSvc       *JWTService
	userRepo     user.Repository
	ledgerRepo   ledger.Repository
	orderRepo    order.Repository
	orderSvc     *order.Service
	wallets      *wallet.Service
	walletEngine *settlement.Engine
	orderEngine  *settlement.Engine
}

// NewHandler creates admin handler
func NewHandler(
	service *Service,
	jwtSvc *JWTService,
	userRepo user.Repository,
	ledgerRepo ledger.Repository,
	orderRepo order.Repository,
	orderSvc *order.Service,
	wallets *wallet.Service,
	walletEngine *settlement.Engine,
	orderEngine *settlement.Engine,
) *Handler {
	return &Handler{
		service:      service,
		jwtSvc:       jwtSvc,
		userRepo:     userRepo,
		ledgerRepo:   ledgerRepo,
		orderRepo:    orderRepo,
		orderSvc:     orderSvc,
		wallets:      wallets,
		walletEngine: walletEngine,
		orderEngine:  orderEngine,
	}
}

// Login handles POST /admin/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	admin, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminInactive):
			response.Forbidden(w, "Admin account is inactive")
		default:
			response.Unauthorized(w, "Invalid email or password")
		}
		return
	}

	token, err := h.jwtSvc.GenerateToken(admin)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, LoginResponse{
		AccessToken: token,
		Admin:       AdminResponseFromEntity(admin),
	})
}

// Me handles GET /admin/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	adminID := GetAdminID(r.Context())
	admin, err := h.service.GetAdminByID(r.Context(), adminID)
	if err != nil {
		response.Unauthorized(w, "Admin not found")
		return
	}
	response.OK(w, AdminResponseFromEntity(admin))
}

// ListAdmins handles GET /admin/admins
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]*AdminResponse, len(admins))
	for i, a := range admins {
		out[i] = AdminResponseFromEntity(a)
	}
	response.OK(w, out)
}

// CreateAdmin handles POST /admin/admins
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	admin, err := h.service.CreateAdmin(r.Context(), GetAdminID(r.Context()), &req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(w, "email already in use")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, AdminResponseFromEntity(admin))
}

// UpdateAdmin handles PATCH /admin/admins/{id}
func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid admin id")
		return
	}

	var req UpdateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	admin, err := h.service.UpdateAdmin(r.Context(), GetAdminID(r.Context()), targetID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminNotFound):
			response.NotFound(w, "admin not found")
		case errors.Is(err, ErrCannotManageRole):
			response.Forbidden(w, "cannot manage admin with equal or higher role")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, AdminResponseFromEntity(admin))
}

// ListFeatures handles GET /admin/features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.ListFeatureFlags(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, flags)
}

// UpdateFeature handles PATCH /admin/features/{key}
func (h *Handler) UpdateFeature(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req FeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.service.UpdateFeatureFlag(r.Context(), GetAdminID(r.Context()), key, req.Value); err != nil {
		if errors.Is(err, ErrFeatureFlagNotFound) {
			response.NotFound(w, "feature flag not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"status": "updated"})
}

// Dashboard handles GET /admin/analytics/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, stats)
}

// AuditLogs handles GET /admin/audit/logs
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := AuditFilter{}
	q := r.URL.Query()

	if v := q.Get("admin_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.AdminID = &id
		}
	}
	if v := q.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := q.Get("entity_type"); v != "" {
		filter.EntityType = &v
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	logs, total, err := h.service.ListAuditLogs(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{
		"logs":  logs,
		"total": total,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
