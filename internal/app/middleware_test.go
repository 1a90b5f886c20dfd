package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/helios-hr/helios/internal/ratelimit"
	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/token"
)

type stubPrincipals struct {
	byEmail map[string]*tenancy.Principal
}

func (s *stubPrincipals) LoadPrincipal(ctx context.Context, email string) (*tenancy.Principal, error) {
	p, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	// Re-resolve active roles against the tenant in scope, as the real
	// loader does.
	return tenancy.NewPrincipal(p.UserID, p.Email, p.PasswordHash(), p.Assignments, tenancy.Resolve(ctx)), nil
}

type pipelineFixture struct {
	router     chi.Router
	tokens     *token.Service
	limiter    *ratelimit.Limiter
	principals *stubPrincipals
	redis      *miniredis.Miniredis
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewService("pipeline-secret", time.Hour, client, logger)
	limiter := ratelimit.NewLimiter(client, 5, 15*time.Minute)
	principals := &stubPrincipals{byEmail: map[string]*tenancy.Principal{}}

	r := chi.NewRouter()
	r.Use(LoginRateLimit(logger, limiter))
	r.Use(TenantScope(logger, tokens))
	r.Use(Authenticate(logger, tokens, principals, nil))

	return &pipelineFixture{router: r, tokens: tokens, limiter: limiter, principals: principals, redis: mr}
}

func (f *pipelineFixture) addPrincipal(email string, tenantID uuid.UUID, set roles.Set) *tenancy.Principal {
	p := tenancy.NewPrincipal(uuid.New(), email, "", map[uuid.UUID]roles.Set{tenantID: set}, tenantID)
	f.principals.byEmail[email] = p
	return p
}

func TestTenantScopeFromLoginHeader(t *testing.T) {
	f := newPipelineFixture(t)
	tenantID := uuid.New()

	var seen uuid.UUID
	var scope *tenancy.Scope
	f.router.Post(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = tenancy.Get(r.Context())
		scope = tenancy.ScopeFrom(r.Context())
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, LoginPath, nil)
	req.Header.Set(TenantHeader, tenantID.String())
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, tenantID, seen)

	// The scope must not leak past the request.
	_, ok := scope.Get()
	require.False(t, ok)
}

func TestTenantScopeRejectsMalformedHeader(t *testing.T) {
	f := newPipelineFixture(t)
	f.router.Post(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, LoginPath, nil)
	req.Header.Set(TenantHeader, "not-a-uuid")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, "invalid_tenant_header", problem["code"])
}

func TestTenantScopeClearedOnPanic(t *testing.T) {
	f := newPipelineFixture(t)
	var scope *tenancy.Scope
	f.router.Post(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		scope = tenancy.ScopeFrom(r.Context())
		panic("handler exploded")
	})

	req := httptest.NewRequest(http.MethodPost, LoginPath, nil)
	req.Header.Set(TenantHeader, uuid.NewString())
	rr := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		f.router.ServeHTTP(rr, req)
	}()

	_, ok := scope.Get()
	require.False(t, ok)
}

func TestLoginRateLimitPerIdentity(t *testing.T) {
	f := newPipelineFixture(t)
	f.router.Post(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	do := func(identity string) int {
		req := httptest.NewRequest(http.MethodPost, LoginPath, nil)
		req.Header.Set(TenantHeader, uuid.NewString())
		req.SetBasicAuth(identity, "wrong-password")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, do("victim@acme.test"), "attempt %d", i+1)
	}
	require.Equal(t, http.StatusTooManyRequests, do("victim@acme.test"))

	// A different identity is unaffected.
	require.Equal(t, http.StatusUnauthorized, do("other@acme.test"))
}

func TestBearerAuthenticationAttachesPrincipal(t *testing.T) {
	f := newPipelineFixture(t)
	tenantID := uuid.New()
	p := f.addPrincipal("hr@acme.test", tenantID, roles.NewSet(roles.HROfficer))

	signed, _, err := f.tokens.Issue(p, tenantID)
	require.NoError(t, err)

	f.router.With(RequireAuth).Get("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request) {
		principal := tenancy.PrincipalFrom(r.Context())
		active, _ := tenancy.Get(r.Context())
		fmt.Fprintf(w, "%s|%s", principal.Email, active)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hr@acme.test|"+tenantID.String(), rr.Body.String())
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	f := newPipelineFixture(t)
	f.router.With(RequireAuth).Get("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProtectedRouteRejectsInvalidatedToken(t *testing.T) {
	f := newPipelineFixture(t)
	tenantID := uuid.New()
	p := f.addPrincipal("hr@acme.test", tenantID, roles.NewSet(roles.HROfficer))

	signed, _, err := f.tokens.Issue(p, tenantID)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Invalidate(context.Background(), signed))

	f.router.With(RequireAuth).Get("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerAuthenticationFailsClosedWhenStoreDown(t *testing.T) {
	f := newPipelineFixture(t)
	tenantID := uuid.New()
	p := f.addPrincipal("hr@acme.test", tenantID, roles.NewSet(roles.HROfficer))

	signed, _, err := f.tokens.Issue(p, tenantID)
	require.NoError(t, err)

	f.router.With(RequireAuth).Get("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request) {})

	f.redis.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
