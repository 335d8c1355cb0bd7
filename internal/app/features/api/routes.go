// internal/app/features/api/routes.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/galleriahq/galleria/internal/app/system/apicors"
	"github.com/galleriahq/galleria/internal/app/system/auth"
)

// Routes returns the action API router.
//
// When mounted at /api:
//   - GET  /api/items                      list/search items
//   - GET  /api/items/{slug}               one item
//   - POST /api/items/{slug}/category      move item to a category chain
//   - POST /api/items/{slug}/description   set item description
//   - GET  /api/categories                 category tree
//   - POST /api/events                     record view/like/comment
//   - POST /api/events/remove              un-like / delete own comment
//   - GET  /api/users/profile              profile + activity timelines
//   - POST /api/users                      upsert profile
//   - POST /api/sync/scan                  trigger a full scan
//   - GET  /api/sync/status                scan status
//
// Authentication is via API key (Bearer token); CORS is permissive since
// there are no cookies to protect.
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(apicors.Middleware())
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Get("/items", h.ListItems)
	r.Get("/items/{slug}", h.ItemBySlug)
	r.Post("/items/{slug}/category", h.SetCategory)
	r.Post("/items/{slug}/description", h.SetDescription)

	r.Get("/categories", h.Categories)

	r.Post("/events", h.UpsertEvent)
	r.Post("/events/remove", h.RemoveEvent)

	r.Get("/users/profile", h.UserProfile)
	r.Post("/users", h.UpsertUser)

	r.Post("/sync/scan", h.SyncScan)
	r.Get("/sync/status", h.SyncStatus)

	return r
}
