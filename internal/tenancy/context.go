// Package tenancy carries the per-request tenant scope and enforces that all
// data access stays inside the active tenant partition.
package tenancy

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RootTenantID is the reserved sentinel meaning "no tenant scoping". It is
// used only for bootstrap seeding and super-admin global reads.
var RootTenantID = uuid.Nil

// Scope is the execution-scoped slot holding the active tenant for one
// in-flight request or delegated task. Exactly one Scope is installed per
// request by the middleware stack and cleared when the request finishes, so
// state never survives onto whatever the server handles next.
type Scope struct {
	mu        sync.Mutex
	tenant    uuid.UUID
	set       bool
	skipGuard bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Set records the active tenant.
func (s *Scope) Set(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = id
	s.set = true
}

// Get returns the active tenant, if any.
func (s *Scope) Get() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant, s.set
}

// Clear empties the scope. Must run on every request exit path.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = uuid.Nil
	s.set = false
	s.skipGuard = false
}

func (s *Scope) snapshot() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant, s.set
}

func (s *Scope) restore(id uuid.UUID, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenant = id
	s.set = set
}

func (s *Scope) setSkip(skip bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.skipGuard
	s.skipGuard = skip
	return prev
}

func (s *Scope) skipActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipGuard
}

type scopeContextKey struct{}

// WithScope installs the scope in the context.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFrom extracts the scope from the context, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}

// EnsureScope returns the context's scope, installing a fresh one when absent.
// Seed scripts and background tasks run outside the HTTP middleware and need
// this to participate in tenant scoping.
func EnsureScope(ctx context.Context) (context.Context, *Scope) {
	if scope := ScopeFrom(ctx); scope != nil {
		return ctx, scope
	}
	scope := NewScope()
	return WithScope(ctx, scope), scope
}

// Set records the active tenant on the context's scope. It is a no-op without
// a scope; business code must not rely on that and should go through the
// middleware or Executor instead.
func Set(ctx context.Context, id uuid.UUID) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.Set(id)
	}
}

// Get returns the active tenant from the context's scope.
func Get(ctx context.Context) (uuid.UUID, bool) {
	scope := ScopeFrom(ctx)
	if scope == nil {
		return uuid.Nil, false
	}
	return scope.Get()
}

// Clear empties the context's scope.
func Clear(ctx context.Context) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.Clear()
	}
}
