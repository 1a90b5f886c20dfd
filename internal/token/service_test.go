package token_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/token"
)

func newService(t *testing.T, ttl time.Duration) (*token.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return token.NewService("test-secret", ttl, client, nil), mr
}

func testPrincipal(tenantID uuid.UUID) *tenancy.Principal {
	return tenancy.NewPrincipal(uuid.New(), "a@x.com", "", map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.TenantAdmin, roles.Employee),
	}, tenantID)
}

func TestIssueValidateRoundTrip(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	tenantID := uuid.New()
	p := testPrincipal(tenantID)

	signed, _, err := svc.Issue(p, tenantID)
	require.NoError(t, err)

	claims, err := svc.Validate(context.Background(), signed, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, tenantID, claims.TenantID)
	require.Equal(t, p.UserID, claims.UserID)
	require.Equal(t, []string{"EMPLOYEE", "TENANT_ADMIN"}, claims.Roles)
}

func TestIssueRequiresTenant(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	_, _, err := svc.Issue(testPrincipal(uuid.New()), uuid.Nil)
	require.ErrorIs(t, err, token.ErrNoTenant)
}

func TestIssueEmbedsOnlyTenantScopedRoles(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	tenantA, tenantB := uuid.New(), uuid.New()
	p := tenancy.NewPrincipal(uuid.New(), "a@x.com", "", map[uuid.UUID]roles.Set{
		tenantA: roles.NewSet(roles.TenantAdmin),
		tenantB: roles.NewSet(roles.SuperAdmin),
	}, tenantA)

	signed, _, err := svc.Issue(p, tenantA)
	require.NoError(t, err)
	claims, err := svc.Validate(context.Background(), signed, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, []string{"TENANT_ADMIN"}, claims.Roles)
}

func TestValidateRejectsWrongSubject(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), signed, "b@x.com")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestValidateRejectsForgedToken(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	tenantID := uuid.New()

	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	// Same token, different secret.
	verifier := token.NewService("other-secret", time.Hour, nil, nil)
	_, err = verifier.Validate(context.Background(), signed, "a@x.com")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestValidateRejectsAfterExpiry(t *testing.T) {
	svc, _ := newService(t, time.Minute)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	_, err = svc.Validate(context.Background(), signed, "a@x.com")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestInvalidateBlacklistsRemainingLifetime(t *testing.T) {
	svc, mr := newService(t, time.Hour)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background(), signed))
	_, err = svc.Validate(context.Background(), signed, "a@x.com")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	// TTL tracks the claims' remaining lifetime, not stored state.
	ttl := mr.TTL("token_blacklist:" + signed)
	require.Greater(t, ttl, 59*time.Minute)
	require.LessOrEqual(t, ttl, time.Hour)

	// Second invalidation recomputes from claims and does not fail.
	require.NoError(t, svc.Invalidate(context.Background(), signed))
}

func TestInvalidateExpiredTokenIsNoOp(t *testing.T) {
	svc, mr := newService(t, time.Minute)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	require.NoError(t, svc.Invalidate(context.Background(), signed))
	require.False(t, mr.Exists("token_blacklist:"+signed))
}

func TestValidateFailsClosedWhenStoreDown(t *testing.T) {
	svc, mr := newService(t, time.Hour)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	mr.Close()
	_, err = svc.Validate(context.Background(), signed, "a@x.com")
	require.Error(t, err)
	require.True(t, errors.Is(err, token.ErrBlacklistUnavailable))
}

func TestExtractTenantIDWithoutVerification(t *testing.T) {
	svc, _ := newService(t, time.Hour)
	tenantID := uuid.New()
	signed, _, err := svc.Issue(testPrincipal(tenantID), tenantID)
	require.NoError(t, err)

	got, err := svc.ExtractTenantID(signed)
	require.NoError(t, err)
	require.Equal(t, tenantID, got)

	_, err = svc.ExtractTenantID("not-a-token")
	require.Error(t, err)
}
