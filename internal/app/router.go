package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helios-hr/helios/internal/auth"
	"github.com/helios-hr/helios/internal/departments"
	"github.com/helios-hr/helios/internal/observability"
	"github.com/helios-hr/helios/internal/positions"
	"github.com/helios-hr/helios/internal/ratelimit"
	"github.com/helios-hr/helios/internal/rbac"
	"github.com/helios-hr/helios/internal/tenants"
	"github.com/helios-hr/helios/internal/token"
	"github.com/helios-hr/helios/internal/users"
	"github.com/helios-hr/helios/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Tokens             *token.Service
	Limiter            *ratelimit.Limiter
	Principals         PrincipalLoader
	Roles              rbac.Middleware
	AuthHandler        *auth.Handler
	TenantsHandler     *tenants.Handler
	UsersHandler       *users.Handler
	DepartmentsHandler *departments.Handler
	PositionsHandler   *positions.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Helios defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:     params.Logger,
		Config:     params.Config,
		Tokens:     params.Tokens,
		Limiter:    params.Limiter,
		Principals: params.Principals,
		Metrics:    params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			protected := ar.With(RequireAuth)
			params.AuthHandler.MountRoutes(ar, protected)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(RequireAuth)

			protected.Route("/tenants", func(tr chi.Router) {
				params.TenantsHandler.MountRoutes(tr, params.Roles)
			})
			protected.Route("/users", func(ur chi.Router) {
				params.UsersHandler.MountRoutes(ur, params.Roles)
			})
			protected.Route("/departments", func(dr chi.Router) {
				params.DepartmentsHandler.MountRoutes(dr, params.Roles)
			})
			protected.Route("/positions", func(pr chi.Router) {
				params.PositionsHandler.MountRoutes(pr, params.Roles)
			})
			if params.JobsHandler != nil {
				protected.Route("/jobs", func(jr chi.Router) {
					jr.Use(params.Roles.RequireSuperAdmin)
					params.JobsHandler.MountRoutes(jr)
				})
			}
		})
	})

	return r
}
