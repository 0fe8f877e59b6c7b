package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines admin data access
type Repository interface {
	// Admin users
	CreateAdmin(ctx context.Context, admin *AdminUser) error
	GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error)
	ListAdmins(ctx context.Context) ([]*AdminUser, error)
	UpdateAdmin(ctx context.Context, admin *AdminUser) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error

	// Audit logs
	CreateAuditLog(ctx context.Context, log *AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error)

	// Feature flags
	GetFeatureFlag(ctx context.Context, key string) (*FeatureFlag, error)
	ListFeatureFlags(ctx context.Context) ([]*FeatureFlag, error)
	UpdateFeatureFlag(ctx context.Context, key string, value json.RawMessage, adminID uuid.UUID) error

	// Analytics
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

// AuditFilter for filtering audit logs
type AuditFilter struct {
	AdminID    *uuid.UUID
	Action     *string
	EntityType *string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Admin users

func (r *repository) CreateAdmin(ctx context.Context, admin *AdminUser) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, password_hash, role, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		admin.ID, admin.Email, admin.PasswordHash, admin.Role,
		admin.Name, admin.IsActive, admin.CreatedAt, admin.UpdatedAt)
	return err
}

func (r *repository) GetAdminByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	return r.getAdmin(ctx, `SELECT * FROM admin_users WHERE id = $1`, id)
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error) {
	return r.getAdmin(ctx, `SELECT * FROM admin_users WHERE email = $1`, email)
}

// Lookups return (nil, nil) on a miss; the service layer maps that to
// its own not-found errors.
func (r *repository) getAdmin(ctx context.Context, query string, arg interface{}) (*AdminUser, error) {
	var admin AdminUser
	if err := r.db.GetContext(ctx, &admin, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *repository) ListAdmins(ctx context.Context) ([]*AdminUser, error) {
	query := `SELECT * FROM admin_users ORDER BY created_at DESC`
	var admins []*AdminUser
	err := r.db.SelectContext(ctx, &admins, query)
	return admins, err
}

func (r *repository) UpdateAdmin(ctx context.Context, admin *AdminUser) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admin_users SET name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1`,
		admin.ID, admin.Name, admin.Role, admin.IsActive)
	return err
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET last_login_at = NOW(), last_login_ip = $2 WHERE id = $1`,
		id, ip)
	return err
}

// Audit logs

func (r *repository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, admin_id, admin_email, action, entity_type, entity_id,
			old_value, new_value, reason, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		log.ID, log.AdminID, log.AdminEmail, log.Action, log.EntityType, log.EntityID,
		log.OldValue, log.NewValue, log.Reason, log.IPAddress, log.UserAgent, log.CreatedAt)
	return err
}

func (r *repository) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AdminID != nil {
		where += ` AND admin_id = ` + arg(*filter.AdminID)
	}
	if filter.Action != nil {
		where += ` AND action = ` + arg(*filter.Action)
	}
	if filter.EntityType != nil {
		where += ` AND entity_type = ` + arg(*filter.EntityType)
	}
	if filter.FromDate != nil {
		where += ` AND created_at >= ` + arg(*filter.FromDate)
	}
	if filter.ToDate != nil {
		where += ` AND created_at <= ` + arg(*filter.ToDate)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT * FROM audit_logs` + where + ` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	var logs []*AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Feature flags

func (r *repository) GetFeatureFlag(ctx context.Context, key string) (*FeatureFlag, error) {
	var flag FeatureFlag
	if err := r.db.GetContext(ctx, &flag, `SELECT * FROM feature_flags WHERE key = $1`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

func (r *repository) ListFeatureFlags(ctx context.Context) ([]*FeatureFlag, error) {
	query := `SELECT * FROM feature_flags ORDER BY key`
	var flags []*FeatureFlag
	err := r.db.SelectContext(ctx, &flags, query)
	return flags, err
}

func (r *repository) UpdateFeatureFlag(ctx context.Context, key string, value json.RawMessage, adminID uuid.UUID) error {
	query := `UPDATE feature_flags SET value = $2, updated_by = $3, updated_at = NOW() WHERE key = $1`
	_, err := r.db.ExecContext(ctx, query, key, value, adminID)
	return err
}

// Analytics

func (r *repository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	// User stats
	r.db.GetContext(ctx, &stats.Users.Total, `SELECT COUNT(*) FROM users`)
	r.db.GetContext(ctx, &stats.Users.Blocked, `SELECT COUNT(*) FROM users WHERE is_blocked = true`)
	r.db.GetContext(ctx, &stats.Users.NewToday, `SELECT COUNT(*) FROM users WHERE created_at >= CURRENT_DATE`)
	r.db.GetContext(ctx, &stats.Users.NewThisWeek, `SELECT COUNT(*) FROM users WHERE created_at >= CURRENT_DATE - INTERVAL '7 days'`)

	// Wallet stats
	r.db.GetContext(ctx, &stats.Wallet.TotalBalance, `SELECT COALESCE(SUM(balance), 0) FROM user_wallets`)
	r.db.GetContext(ctx, &stats.Wallet.DepositsToday, `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE kind = 'deposit' AND status = 'success' AND created_at >= CURRENT_DATE`)
	r.db.GetContext(ctx, &stats.Wallet.PendingCount, `SELECT COUNT(*) FROM wallet_transactions WHERE status = 'pending'`)
	r.db.GetContext(ctx, &stats.Wallet.ProcessingCount, `SELECT COUNT(*) FROM wallet_transactions WHERE status = 'processing'`)

	// Order stats
	r.db.GetContext(ctx, &stats.Orders.Total, `SELECT COUNT(*) FROM orders`)
	r.db.GetContext(ctx, &stats.Orders.PaidToday, `SELECT COUNT(*) FROM orders WHERE payment_status = 'success' AND paid_at >= CURRENT_DATE`)
	r.db.GetContext(ctx, &stats.Orders.PendingDelivery, `SELECT COUNT(*) FROM orders WHERE payment_status = 'success' AND topup_status = 'pending'`)
	r.db.GetContext(ctx, &stats.Orders.RevenueThisMonth, `SELECT COALESCE(SUM(amount), 0) FROM orders WHERE payment_status = 'success' AND created_at >= DATE_TRUNC('month', CURRENT_DATE)`)

	return stats, nil
}
