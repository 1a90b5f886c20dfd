package tenancy

import (
	"context"

	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/roles"
)

// Principal is the authenticated caller for a request. A user can hold a
// different role set per tenant; ActiveRoles is the subset for the tenant that
// was in scope at authentication time and is the only set consulted for
// authorization.
type Principal struct {
	UserID      uuid.UUID
	Email       string
	Assignments map[uuid.UUID]roles.Set
	ActiveRoles roles.Set

	passwordHash string
}

// NewPrincipal builds a principal with its active roles resolved for the
// given tenant.
func NewPrincipal(userID uuid.UUID, email, passwordHash string, assignments map[uuid.UUID]roles.Set, tenantID uuid.UUID) *Principal {
	p := &Principal{
		UserID:       userID,
		Email:        email,
		Assignments:  assignments,
		passwordHash: passwordHash,
	}
	p.ActiveRoles = p.RolesForTenant(tenantID)
	return p
}

// RolesForTenant returns the roles assigned for a specific tenant.
func (p *Principal) RolesForTenant(tenantID uuid.UUID) roles.Set {
	if p == nil || p.Assignments == nil {
		return roles.Set{}
	}
	if set, ok := p.Assignments[tenantID]; ok {
		return set
	}
	return roles.Set{}
}

// TenantIDs returns every tenant the principal has an assignment for.
func (p *Principal) TenantIDs() []uuid.UUID {
	if p == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(p.Assignments))
	for id := range p.Assignments {
		ids = append(ids, id)
	}
	return ids
}

// HasRole reports whether the active role set contains the role.
func (p *Principal) HasRole(role roles.Role) bool {
	return p != nil && p.ActiveRoles.Has(role)
}

// IsSuperAdmin reports whether the principal holds the global super role.
func (p *Principal) IsSuperAdmin() bool {
	return p.HasRole(roles.SuperAdmin)
}

// PasswordHash exposes the stored hash for credential checks only. It is
// deliberately kept off the exported fields so it never ends up in a response
// body or log line.
func (p *Principal) PasswordHash() string {
	if p == nil {
		return ""
	}
	return p.passwordHash
}

type principalContextKey struct{}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom extracts the principal, or nil when the request is
// unauthenticated.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
