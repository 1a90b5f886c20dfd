package departments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	Create(ctx context.Context, tenantID uuid.UUID, input DepartmentInput) (Department, error)
	FindByID(ctx context.Context, id uuid.UUID) (Department, error)
	Update(ctx context.Context, id, tenantID uuid.UUID, input DepartmentInput) (Department, error)
	ToggleActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Department, error)
}

// Service handles department business logic within the tenant in scope.
type Service struct {
	repo  RepositoryPort
	guard *tenancy.Guard
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, guard *tenancy.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

// Create adds a department to the tenant in scope. Duplicate names within a
// tenant are rejected.
func (s *Service) Create(ctx context.Context, input DepartmentInput) (Department, error) {
	tenantID := tenancy.Resolve(ctx)
	taken, err := s.repo.ExistsByName(ctx, tenantID, input.Name)
	if err != nil {
		return Department{}, err
	}
	if taken {
		return Department{}, fmt.Errorf("%w: name", shared.ErrDuplicateField)
	}
	return s.repo.Create(ctx, tenantID, input)
}

// Get loads a department and verifies it belongs to the tenant in scope.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Department, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Department{}, err
	}
	if err := s.guard.Check(ctx, dept.TenantID); err != nil {
		return Department{}, err
	}
	return dept, nil
}

// Update overwrites a department's fields within the tenant in scope.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input DepartmentInput) (Department, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Department{}, err
	}
	return s.repo.Update(ctx, id, tenancy.Resolve(ctx), input)
}

// ToggleStatus flips the active flag within the tenant in scope.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return s.repo.ToggleActive(ctx, id, tenancy.Resolve(ctx))
}

// List returns a page of the scoped tenant's departments.
func (s *Service) List(ctx context.Context, page shared.Pagination) ([]Department, error) {
	return s.repo.ListByTenant(ctx, tenancy.Resolve(ctx), page.Limit(), page.Offset())
}
