package positions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// RepositoryPort defines data access methods for positions.
type RepositoryPort interface {
	Create(ctx context.Context, tenantID uuid.UUID, input PositionInput) (Position, error)
	FindByID(ctx context.Context, id uuid.UUID) (Position, error)
	Update(ctx context.Context, id, tenantID uuid.UUID, input PositionInput) (Position, error)
	ToggleActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error)
	ExistsByTitle(ctx context.Context, tenantID uuid.UUID, title string) (bool, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Position, error)
}

// DepartmentChecker verifies the target department exists inside the tenant
// before a position is attached to it.
type DepartmentChecker interface {
	ExistsInTenant(ctx context.Context, id, tenantID uuid.UUID) (bool, error)
}

// Service handles position business logic within the tenant in scope.
type Service struct {
	repo        RepositoryPort
	departments DepartmentChecker
	guard       *tenancy.Guard
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, departments DepartmentChecker, guard *tenancy.Guard) *Service {
	return &Service{repo: repo, departments: departments, guard: guard}
}

// Create adds a position to the tenant in scope. The department must belong
// to the same tenant and duplicate titles within a tenant are rejected.
func (s *Service) Create(ctx context.Context, input PositionInput) (Position, error) {
	tenantID := tenancy.Resolve(ctx)
	if err := s.checkDepartment(ctx, input.DepartmentID, tenantID); err != nil {
		return Position{}, err
	}
	taken, err := s.repo.ExistsByTitle(ctx, tenantID, input.Title)
	if err != nil {
		return Position{}, err
	}
	if taken {
		return Position{}, fmt.Errorf("%w: title", shared.ErrDuplicateField)
	}
	return s.repo.Create(ctx, tenantID, input)
}

// Get loads a position and verifies it belongs to the tenant in scope.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Position, error) {
	pos, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Position{}, err
	}
	if err := s.guard.Check(ctx, pos.TenantID); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Update overwrites a position's fields within the tenant in scope.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input PositionInput) (Position, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Position{}, err
	}
	tenantID := tenancy.Resolve(ctx)
	if err := s.checkDepartment(ctx, input.DepartmentID, tenantID); err != nil {
		return Position{}, err
	}
	return s.repo.Update(ctx, id, tenantID, input)
}

// ToggleStatus flips the active flag within the tenant in scope.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return s.repo.ToggleActive(ctx, id, tenancy.Resolve(ctx))
}

// List returns a page of the scoped tenant's positions.
func (s *Service) List(ctx context.Context, page shared.Pagination) ([]Position, error) {
	return s.repo.ListByTenant(ctx, tenancy.Resolve(ctx), page.Limit(), page.Offset())
}

func (s *Service) checkDepartment(ctx context.Context, departmentID, tenantID uuid.UUID) error {
	exists, err := s.departments.ExistsInTenant(ctx, departmentID, tenantID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("department %s: %w", departmentID, shared.ErrNotFound)
	}
	return nil
}
