package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/pkg/password"
)

// Service handles operator accounts, feature flags, and the audit trail.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Login authenticates an operator. A wrong email and a wrong password
// return the same error so the endpoint does not leak which emails exist.
func (s *Service) Login(ctx context.Context, email, pwd, ip string) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil || admin == nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAdminInactive
	}
	if !password.Verify(pwd, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Best effort, login must not fail on a bookkeeping write.
	_ = s.repo.UpdateLastLogin(ctx, admin.ID, ip)

	return admin, nil
}

func (s *Service) GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByID(ctx, id)
	if err != nil || admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// CreateAdmin provisions a new operator account.
func (s *Service) CreateAdmin(ctx context.Context, actorID uuid.UUID, req *CreateAdminRequest) (*AdminUser, error) {
	if existing, _ := s.repo.GetAdminByEmail(ctx, req.Email); existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin := &AdminUser{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         Role(req.Role),
		Name:         req.Name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.LogAction(ctx, actorID, "admin.create", "admin", admin.ID.String(), "", nil, admin)
	return admin, nil
}

// UpdateAdmin applies partial updates to an operator account. The actor
// must sit strictly above the target in the role hierarchy, so an admin
// cannot edit a fellow admin or an owner.
func (s *Service) UpdateAdmin(ctx context.Context, actorID, targetID uuid.UUID, req *UpdateAdminRequest) (*AdminUser, error) {
	admin, err := s.repo.GetAdminByID(ctx, targetID)
	if err != nil || admin == nil {
		return nil, ErrAdminNotFound
	}

	if actor, _ := s.repo.GetAdminByID(ctx, actorID); actor != nil && !CanManage(actor.Role, admin.Role) {
		return nil, ErrCannotManageRole
	}

	before := *admin
	if req.Name != nil {
		admin.Name = *req.Name
	}
	if req.Role != nil {
		admin.Role = Role(*req.Role)
	}
	if req.IsActive != nil {
		admin.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.LogAction(ctx, actorID, "admin.update", "admin", admin.ID.String(), "", before, admin)
	return admin, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]*AdminUser, error) {
	return s.repo.ListAdmins(ctx)
}

func (s *Service) GetFeatureFlag(ctx context.Context, key string) (*FeatureFlag, error) {
	flag, err := s.repo.GetFeatureFlag(ctx, key)
	if err != nil || flag == nil {
		return nil, ErrFeatureFlagNotFound
	}
	return flag, nil
}

func (s *Service) ListFeatureFlags(ctx context.Context) ([]*FeatureFlag, error) {
	return s.repo.ListFeatureFlags(ctx)
}

// UpdateFeatureFlag replaces a flag value. Flags are created by schema
// seed, not through the API, so an unknown key is an error rather than
// an upsert.
func (s *Service) UpdateFeatureFlag(ctx context.Context, adminID uuid.UUID, key string, value interface{}) error {
	flag, err := s.repo.GetFeatureFlag(ctx, key)
	if err != nil || flag == nil {
		return ErrFeatureFlagNotFound
	}

	newValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateFeatureFlag(ctx, key, newValue, adminID); err != nil {
		return err
	}

	s.LogAction(ctx, adminID, "feature.update", "feature_flag", key, "",
		map[string]interface{}{"key": key, "value": flag.Value},
		map[string]interface{}{"key": key, "value": json.RawMessage(newValue)},
	)
	return nil
}

// Bool reads a boolean flag, falling back to the given default when the
// flag row does not exist. Satisfies the recharge domain's FlagReader.
func (s *Service) Bool(ctx context.Context, key string, fallback bool) bool {
	flag, err := s.repo.GetFeatureFlag(ctx, key)
	if err != nil || flag == nil {
		return fallback
	}
	return flag.GetBool()
}

func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error) {
	return s.repo.ListAuditLogs(ctx, filter)
}

// LogAction records an admin action. Audit failures never fail the
// underlying operation.
func (s *Service) LogAction(ctx context.Context, adminID uuid.UUID, action, entityType, entityID, reason string, oldValue, newValue interface{}) {
	email := ""
	if admin, _ := s.repo.GetAdminByID(ctx, adminID); admin != nil {
		email = admin.Email
	}

	oldJSON, _ := json.Marshal(oldValue)
	newJSON, _ := json.Marshal(newValue)

	err := s.repo.CreateAuditLog(ctx, &AuditLog{
		ID:         uuid.New(),
		AdminID:    uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil},
		AdminEmail: email,
		Action:     action,
		EntityType: entityType,
		EntityID:   sql.NullString{String: entityID, Valid: entityID != ""},
		OldValue:   oldJSON,
		NewValue:   newJSON,
		Reason:     sql.NullString{String: reason, Valid: reason != ""},
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
