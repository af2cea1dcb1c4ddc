// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard feature under whatever mount point
// the top-level router chooses (e.g., "/dashboard").
//
// "/" dispatches on the current user's role; each role's view-model
// lives under its own prefix and is guarded by that role.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(sm.RequireRole(string(models.RoleAdmin)))
		ar.Get("/", h.ServeAdmin)
		ar.Post("/refresh", h.RefreshAdmin)
		ar.Put("/dialog/form", h.UpdateCreateDialog)
		ar.Post("/dialog/cancel", h.CancelCreateDialog)
		ar.Post("/dialog/submit", h.SubmitCreateDialog)
		ar.Post("/dialog/{kind}", h.OpenCreateDialog)
		ar.Delete("/users/{id}", h.DeleteUser)
		ar.Delete("/stores/{id}", h.DeleteStore)
	})

	r.Route("/store-owner", func(or chi.Router) {
		or.Use(sm.RequireRole(string(models.RoleStoreOwner)))
		or.Get("/", h.ServeStoreOwner)
		or.Post("/refresh", h.RefreshStoreOwner)
	})

	r.Route("/user", func(ur chi.Router) {
		ur.Use(sm.RequireRole(string(models.RoleUser)))
		ur.Get("/", h.ServeUser)
		ur.Post("/refresh", h.RefreshUser)
		ur.Post("/password/open", h.OpenPasswordDialog)
		ur.Put("/password/form", h.UpdatePasswordDialog)
		ur.Post("/password/cancel", h.CancelPasswordDialog)
		ur.Post("/password/submit", h.SubmitPasswordDialog)
	})

	return r
}
