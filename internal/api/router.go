package api

import (
	"net/http"

	mw "github.com/gatekit-dev/gatekit/internal/api/middleware"
	"github.com/gatekit-dev/gatekit/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth        *mw.Auth
	SessionAuth *mw.SessionAuth
	RateLimit   *mw.RateLimit

	HealthHandler           http.HandlerFunc
	ListKeysHandler         http.HandlerFunc
	UpdatePermissionHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/v1/health", orNotImplemented(deps.HealthHandler))

	// Root-key authenticated key API
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/v1/apis/{apiID}/keys", orNotImplemented(deps.ListKeysHandler))
	})

	// Session-authenticated dashboard RPCs
	r.Group(func(r chi.Router) {
		r.Use(deps.SessionAuth.Authenticate)

		r.Post("/v1/rpc/rbac.updatePermission", orNotImplemented(deps.UpdatePermissionHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
