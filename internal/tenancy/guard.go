package tenancy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrTenantMismatch indicates a record from one tenant was touched while the
// request was scoped to another. Always fatal for the operation; it signals
// either a bug or an attack and is never silently corrected.
var ErrTenantMismatch = errors.New("tenancy: record tenant does not match active tenant")

// Guard validates on every load/create/update/delete of a tenant-scoped
// record that the record belongs to the active tenant. Repositories call it
// explicitly around their statements since no ORM lifecycle hook exists here.
type Guard struct {
	logger *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger}
}

// Check allows the operation when the scope-local skip flag is active or the
// principal holds the super role; otherwise the record's tenant must equal
// the active tenant.
func (g *Guard) Check(ctx context.Context, recordTenant uuid.UUID) error {
	scope := ScopeFrom(ctx)
	if scope != nil && scope.skipActive() {
		return nil
	}
	if PrincipalFrom(ctx).IsSuperAdmin() {
		return nil
	}

	var active uuid.UUID
	if scope != nil {
		active, _ = scope.Get()
	}
	if active != recordTenant {
		g.logger.Warn("tenant isolation violation",
			slog.String("active_tenant", active.String()),
			slog.String("record_tenant", recordTenant.String()),
		)
		return ErrTenantMismatch
	}
	return nil
}

// WithoutGuard runs fn with isolation checks disabled on the current scope,
// restoring the previous flag state afterward even when fn fails. Reserved
// for controlled seed and migration routines.
func WithoutGuard(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, scope := EnsureScope(ctx)
	prev := scope.setSkip(true)
	defer scope.setSkip(prev)
	return fn(ctx)
}
