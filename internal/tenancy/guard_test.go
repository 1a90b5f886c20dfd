package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helios-hr/helios/internal/roles"
)

func scopedContext(t *testing.T, tenantID uuid.UUID) context.Context {
	t.Helper()
	ctx := WithScope(context.Background(), NewScope())
	Set(ctx, tenantID)
	return ctx
}

func TestGuardAllowsMatchingTenant(t *testing.T) {
	id := uuid.New()
	guard := NewGuard(nil)
	require.NoError(t, guard.Check(scopedContext(t, id), id))
}

func TestGuardRejectsMismatchedTenant(t *testing.T) {
	guard := NewGuard(nil)
	err := guard.Check(scopedContext(t, uuid.New()), uuid.New())
	require.ErrorIs(t, err, ErrTenantMismatch)
}

func TestGuardRejectsWhenScopeEmpty(t *testing.T) {
	guard := NewGuard(nil)
	ctx := WithScope(context.Background(), NewScope())
	err := guard.Check(ctx, uuid.New())
	require.ErrorIs(t, err, ErrTenantMismatch)
}

func TestGuardAllowsSuperAdminAcrossTenants(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	ctx := scopedContext(t, tenantA)
	p := NewPrincipal(uuid.New(), "root@helios.local", "", map[uuid.UUID]roles.Set{
		RootTenantID: roles.NewSet(roles.SuperAdmin),
	}, RootTenantID)
	ctx = WithPrincipal(ctx, p)

	guard := NewGuard(nil)
	require.NoError(t, guard.Check(ctx, tenantB))
}

func TestGuardSkipFlagScopedAndRestored(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	ctx := scopedContext(t, tenantA)
	guard := NewGuard(nil)

	err := WithoutGuard(ctx, func(ctx context.Context) error {
		return guard.Check(ctx, tenantB)
	})
	require.NoError(t, err)

	// The flag must not survive the call.
	require.ErrorIs(t, guard.Check(ctx, tenantB), ErrTenantMismatch)
}

func TestGuardSkipFlagRestoredOnError(t *testing.T) {
	tenantA := uuid.New()
	ctx := scopedContext(t, tenantA)
	guard := NewGuard(nil)

	boom := errors.New("boom")
	err := WithoutGuard(ctx, func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, guard.Check(ctx, uuid.New()), ErrTenantMismatch)
}

func TestActiveRolesOnlyForScopedTenant(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	assignments := map[uuid.UUID]roles.Set{
		tenantA: roles.NewSet(roles.TenantAdmin),
		tenantB: roles.NewSet(roles.Employee),
	}
	p := NewPrincipal(uuid.New(), "user@acme.test", "hash", assignments, tenantA)
	require.True(t, p.HasRole(roles.TenantAdmin))
	require.False(t, p.HasRole(roles.Employee))
	require.False(t, p.IsSuperAdmin())
	require.Equal(t, "hash", p.PasswordHash())
}
