package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// Resolve returns the tenant the data layer should use for the next
// operation: the scope's tenant when set, the root sentinel otherwise. The
// fallback keeps bootstrap and seed operations explicit instead of silently
// inheriting whatever tenant a pooled worker saw last. Called on every data
// operation, so it must stay cheap.
func Resolve(ctx context.Context) uuid.UUID {
	if id, ok := Get(ctx); ok {
		return id
	}
	return RootTenantID
}

// IsRootTenant reports whether the id is the reserved root sentinel. The
// persistence layer uses this to skip partition filtering on bootstrap
// connections.
func IsRootTenant(id uuid.UUID) bool {
	return id == RootTenantID
}
