package rbac

import (
	"net/http"

	"log/slog"

	"github.com/helios-hr/helios/internal/platform/httpx"
	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// Middleware wires role-based authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current principal holds at least one of the given
// roles in the active tenant. A super admin passes every check.
func (m Middleware) RequireAny(required ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := tenancy.PrincipalFrom(r.Context())
			if principal == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if principal.IsSuperAdmin() || principal.ActiveRoles.HasAny(required...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("authorization denied",
					slog.String("identity", principal.Email),
					slog.Any("roles", principal.ActiveRoles.Names()),
				)
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireSuperAdmin restricts a route to principals holding the super admin
// role in any tenant.
func (m Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := tenancy.PrincipalFrom(r.Context())
		if principal == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if !principal.IsSuperAdmin() {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
