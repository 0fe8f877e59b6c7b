package admin

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest for POST /admin/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse after successful login
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	Admin       *AdminResponse `json:"admin"`
}

// AdminResponse represents admin in API
type AdminResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	LastLoginAt *string   `json:"last_login_at,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// AdminResponseFromEntity converts entity to response
func AdminResponseFromEntity(a *AdminUser) *AdminResponse {
	resp := &AdminResponse{
		ID:        a.ID,
		Email:     a.Email,
		Role:      string(a.Role),
		Name:      a.Name,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}

	if a.LastLoginAt.Valid {
		s := a.LastLoginAt.Time.Format(time.RFC3339)
		resp.LastLoginAt = &s
	}

	if perms, ok := RolePermissions[a.Role]; ok {
		resp.Permissions = make([]string, len(perms))
		for i, p := range perms {
			resp.Permissions[i] = string(p)
		}
	}

	return resp
}

// CreateAdminRequest for POST /admin/admins
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,admin_role"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateAdminRequest for PATCH /admin/admins/{id}
type UpdateAdminRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,admin_role"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// BlockUserRequest for PATCH /admin/users/{id}/block
type BlockUserRequest struct {
	IsBlocked bool   `json:"is_blocked"`
	Reason    string `json:"reason,omitempty" validate:"max=500"`
}

// OverrideRequest carries the operator's reason for a manual settlement
// override.
type OverrideRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// AdjustBalanceRequest for POST /admin/users/{id}/balance
type AdjustBalanceRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Direction   string `json:"direction" validate:"required,oneof=add remove"`
	Reason      string `json:"reason" validate:"required,min=3,max=500"`
	Description string `json:"description,omitempty" validate:"max=255"`
}

// TransactionFilterRequest narrows GET /admin/transactions
type TransactionFilterRequest struct {
	Kind   string `json:"kind" validate:"omitempty,tx_kind"`
	Status string `json:"status" validate:"omitempty,tx_status"`
}

// FeatureRequest for PATCH /admin/features/{key}
type FeatureRequest struct {
	Value interface{} `json:"value" validate:"required"`
}

// DashboardStats for /admin/analytics/dashboard
type DashboardStats struct {
	Users  UserStats   `json:"users"`
	Wallet WalletStats `json:"wallet"`
	Orders OrderStats  `json:"orders"`
}

type UserStats struct {
	Total       int `json:"total"`
	Blocked     int `json:"blocked"`
	NewToday    int `json:"new_today"`
	NewThisWeek int `json:"new_this_week"`
}

type WalletStats struct {
	TotalBalance    int64 `json:"total_balance"`
	DepositsToday   int64 `json:"deposits_today"`
	PendingCount    int   `json:"pending_count"`
	ProcessingCount int   `json:"processing_count"`
}

type OrderStats struct {
	Total            int   `json:"total"`
	PaidToday        int   `json:"paid_today"`
	PendingDelivery  int   `json:"pending_delivery"`
	RevenueThisMonth int64 `json:"revenue_this_month"`
}
