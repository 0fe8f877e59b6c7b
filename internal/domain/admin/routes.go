package admin

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the admin panel API. Everything past /auth/login sits
// behind the admin JWT; mutating endpoints additionally require the
// matching permission for the caller's role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.jwtSvc, h.service))

		r.Get("/auth/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermViewUsers))
			r.Get("/users", h.ListUsers)
			r.Get("/users/{id}", h.GetUser)
		})
		r.With(RequirePermission(PermBlockUsers)).Patch("/users/{id}/block", h.BlockUser)
		r.With(RequirePermission(PermAdjustBalances)).Post("/users/{id}/balance", h.AdjustBalance)

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermViewTransactions))
			r.Get("/transactions", h.ListTransactions)
			r.Get("/transactions/{id}", h.GetTransaction)
		})
		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermOverrideTransactions))
			r.Post("/transactions/{id}/settle", h.SettleTransaction)
			r.Post("/transactions/{id}/fail", h.FailTransaction)
			r.Post("/orders/{id}/settle", h.SettleOrder)
			r.Post("/orders/{id}/fail", h.FailOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermViewOrders))
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
		})
		r.With(RequirePermission(PermRetryDelivery)).Post("/orders/{id}/retry-delivery", h.RetryDelivery)

		r.With(RequirePermission(PermViewAnalytics)).Get("/analytics/dashboard", h.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermManageFeatures))
			r.Get("/features", h.ListFeatures)
			r.Patch("/features/{key}", h.UpdateFeature)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(PermManageAdmins))
			r.Get("/admins", h.ListAdmins)
			r.Post("/admins", h.CreateAdmin)
			r.Patch("/admins/{id}", h.UpdateAdmin)
		})

		r.With(RequirePermission(PermViewAuditLogs)).Get("/audit/logs", h.AuditLogs)
	})

	return r
}
