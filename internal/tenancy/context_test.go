package tenancy

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScopeSetGetClear(t *testing.T) {
	ctx := WithScope(context.Background(), NewScope())

	if _, ok := Get(ctx); ok {
		t.Fatalf("expected empty scope at start")
	}

	id := uuid.New()
	Set(ctx, id)
	got, ok := Get(ctx)
	if !ok || got != id {
		t.Fatalf("expected %s, got %s (ok=%v)", id, got, ok)
	}

	Clear(ctx)
	if _, ok := Get(ctx); ok {
		t.Fatalf("expected empty scope after clear")
	}
}

func TestScopeWithoutScopeInContext(t *testing.T) {
	ctx := context.Background()
	Set(ctx, uuid.New()) // must not panic
	if _, ok := Get(ctx); ok {
		t.Fatalf("expected no tenant without a scope")
	}
}

// Concurrently executing requests must never observe each other's tenant.
func TestScopeIsolationAcrossConcurrentRequests(t *testing.T) {
	const requests = 64
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithScope(context.Background(), NewScope())
			want := uuid.New()
			Set(ctx, want)
			for j := 0; j < 100; j++ {
				got, ok := Get(ctx)
				if !ok || got != want {
					t.Errorf("scope crosstalk: want %s got %s", want, got)
					return
				}
			}
			Clear(ctx)
			if _, ok := Get(ctx); ok {
				t.Errorf("scope not empty after clear")
			}
		}()
	}
	wg.Wait()
}

func TestResolveFallsBackToRoot(t *testing.T) {
	ctx := WithScope(context.Background(), NewScope())
	require.Equal(t, RootTenantID, Resolve(ctx))
	require.True(t, IsRootTenant(Resolve(ctx)))

	id := uuid.New()
	Set(ctx, id)
	require.Equal(t, id, Resolve(ctx))
	require.False(t, IsRootTenant(id))
}

func TestEnsureScopeReusesExisting(t *testing.T) {
	scope := NewScope()
	ctx := WithScope(context.Background(), scope)
	_, got := EnsureScope(ctx)
	require.Same(t, scope, got)

	ctx2, fresh := EnsureScope(context.Background())
	require.NotNil(t, fresh)
	require.Same(t, fresh, ScopeFrom(ctx2))
}
