package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/helios-hr/helios/internal/observability"
	"github.com/helios-hr/helios/internal/platform/httpx"
	"github.com/helios-hr/helios/internal/ratelimit"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/token"
)

// TenantHeader carries the tenant id on the login route, where no token
// exists yet to derive it from.
const TenantHeader = "X-Tenant-ID"

// LoginPath is the only route authenticated with Basic credentials; every
// other route requires a bearer token.
const LoginPath = "/api/v1/auth/login"

// PrincipalLoader resolves an identity into a principal scoped to the tenant
// currently in scope.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, email string) (*tenancy.Principal, error)
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger     *slog.Logger
	Config     *Config
	Tokens     *token.Service
	Limiter    *ratelimit.Limiter
	Principals PrincipalLoader
	Metrics    *observability.Metrics
}

// MiddlewareStack installs the outer middleware chain. The security pipeline
// proper (rate limit, tenant scope, authentication) is mounted inside it so
// ordering is fixed: a request is throttled before it is scoped, and scoped
// before any credential is examined.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		cfg.Metrics.Middleware,
		LoginRateLimit(cfg.Logger, cfg.Limiter),
		TenantScope(cfg.Logger, cfg.Tokens),
		Authenticate(cfg.Logger, cfg.Tokens, cfg.Principals, cfg.Metrics),
	}
	return middlewares
}

// LoginRateLimit throttles login attempts per identity, keyed by the email in
// the Basic credential header rather than by network address. Requests over
// the limit never reach credential checking.
func LoginRateLimit(logger *slog.Logger, limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.URL.Path != LoginPath {
				next.ServeHTTP(w, r)
				return
			}
			identity, _, ok := r.BasicAuth()
			if !ok || identity == "" {
				next.ServeHTTP(w, r)
				return
			}
			exceeded, err := limiter.CheckAndRecord(r.Context(), identity)
			if err != nil {
				logger.Error("rate limit store", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", httpx.CodeInternal, "")
				return
			}
			if exceeded {
				logger.Info("login throttled", slog.String("identity", identity))
				httpx.RespondError(w, shared.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantScope resolves the active tenant and installs a fresh scope for the
// request: from the X-Tenant-ID header on the login path, from the bearer
// token's tenant claim everywhere else. The claim is read without verifying
// the token — that is safe for routing only; trust is established by the
// authentication stage. The scope is cleared on every exit path, including
// panics recovered further up the chain.
func TenantScope(logger *slog.Logger, tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := tenancy.NewScope()
			ctx := tenancy.WithScope(r.Context(), scope)
			defer scope.Clear()

			if r.URL.Path == LoginPath {
				raw := r.Header.Get(TenantHeader)
				if raw != "" {
					tenantID, err := uuid.Parse(raw)
					if err != nil {
						logger.Info("malformed tenant header", slog.String("value", raw))
						httpx.RespondError(w, shared.ErrInvalidTenantHeader)
						return
					}
					scope.Set(tenantID)
				}
			} else if raw := token.FromRequest(r); raw != "" {
				tenantID, err := tokens.ExtractTenantID(raw)
				if err != nil {
					logger.Info("malformed bearer token", slog.Any("error", err))
					httpx.RespondError(w, shared.ErrInvalidTenantHeader)
					return
				}
				scope.Set(tenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate validates the bearer token on non-login routes and attaches
// the principal. A request with no token, or one failing any validation
// check, continues unauthenticated; protected routes reject it downstream
// while public routes still work. An unreachable revocation store is a hard
// failure — it must not let revoked tokens through.
func Authenticate(logger *slog.Logger, tokens *token.Service, principals PrincipalLoader, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == LoginPath {
				next.ServeHTTP(w, r)
				return
			}
			raw := token.FromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := tokens.ExtractClaimsUnverified(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			validated, err := tokens.Validate(ctx, raw, claims.Subject)
			if err != nil {
				if errors.Is(err, token.ErrBlacklistUnavailable) {
					logger.Error("token validation", slog.Any("error", err))
					httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", httpx.CodeInternal, "")
					return
				}
				metrics.ObserveTokenValidation("rejected")
				next.ServeHTTP(w, r)
				return
			}

			principal, err := principals.LoadPrincipal(ctx, validated.Subject)
			if err != nil {
				logger.Info("principal lookup failed",
					slog.String("identity", validated.Subject),
					slog.String("tenant", validated.TenantID.String()),
				)
				metrics.ObserveTokenValidation("no_principal")
				next.ServeHTTP(w, r)
				return
			}

			metrics.ObserveTokenValidation("accepted")
			ctx = tenancy.WithPrincipal(ctx, principal)
			ctx = token.WithClaims(ctx, validated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that reach a protected route without an
// authenticated principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenancy.PrincipalFrom(r.Context()) == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
