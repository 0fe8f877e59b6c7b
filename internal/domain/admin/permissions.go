package admin

// Permission represents an admin permission
type Permission string

const (
	// User management
	PermViewUsers  Permission = "users.view"
	PermBlockUsers Permission = "users.block"

	// Wallet transactions
	PermViewTransactions     Permission = "transactions.view"
	PermOverrideTransactions Permission = "transactions.override"
	PermAdjustBalances       Permission = "balances.adjust"

	// Orders
	PermViewOrders    Permission = "orders.view"
	PermRetryDelivery Permission = "orders.retry_delivery"

	// System
	PermViewAnalytics  Permission = "analytics.view"
	PermManageFeatures Permission = "features.manage"
	PermManageAdmins   Permission = "admins.manage"
	PermViewAuditLogs  Permission = "audit.view"
)

// RolePermissions maps roles to their permissions. Settlement overrides
// require admin or owner; support is strictly read-only.
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermViewUsers, PermBlockUsers,
		PermViewTransactions, PermOverrideTransactions, PermAdjustBalances,
		PermViewOrders, PermRetryDelivery,
		PermViewAnalytics, PermManageFeatures, PermManageAdmins, PermViewAuditLogs,
	},
	RoleAdmin: {
		PermViewUsers, PermBlockUsers,
		PermViewTransactions, PermOverrideTransactions, PermAdjustBalances,
		PermViewOrders, PermRetryDelivery,
		PermViewAnalytics, PermManageFeatures, PermViewAuditLogs,
	},
	RoleSupport: {
		PermViewUsers,
		PermViewTransactions,
		PermViewOrders,
		PermViewAnalytics,
	},
}

// Can reports whether the role grants the permission.
func (r Role) Can(perm Permission) bool {
	for _, p := range RolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}

// RoleHierarchy defines role levels (higher = more permissions)
var RoleHierarchy = map[Role]int{
	RoleOwner:   100,
	RoleAdmin:   80,
	RoleSupport: 40,
}

// CanManage checks if role1 can manage role2
func CanManage(role1, role2 Role) bool {
	return RoleHierarchy[role1] > RoleHierarchy[role2]
}
