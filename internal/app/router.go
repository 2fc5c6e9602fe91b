package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sige-edu/sige/internal/assignment"
	"github.com/sige-edu/sige/internal/directory"
	"github.com/sige-edu/sige/internal/guard"
	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/records"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Guard             guard.Middleware
	DirectoryHandler  *directory.Handler
	AssignmentHandler *assignment.Handler
	IdentityHandler   *identity.Handler
	RecordsHandler    *records.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
//
// Directory, assignment, and identity administration require the national
// administrator role; office holders additionally manage schools below them
// through scoped handlers, and record access is enforced per row inside the
// records service.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Guard:   params.Guard,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/directory", func(r chi.Router) {
			r.Use(params.Guard.RequireRole(identity.RoleNationalAdmin))
			params.DirectoryHandler.Routes(r)
		})
		r.Route("/assignments", func(r chi.Router) {
			r.Use(params.Guard.RequireRole(identity.RoleNationalAdmin))
			params.AssignmentHandler.Routes(r)
		})
		r.Route("/identity", func(r chi.Router) {
			r.Use(params.Guard.RequireRole(identity.RoleNationalAdmin))
			params.IdentityHandler.Routes(r)
		})
		r.Route("/records", func(r chi.Router) {
			params.RecordsHandler.Routes(r)
		})
	})

	return r
}
