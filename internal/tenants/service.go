package tenants

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// RepositoryPort defines data access methods for tenants.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateTenantInput) (Tenant, error)
	FindByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (Tenant, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]Tenant, error)
}

// Provisioner hands off post-creation provisioning work, such as creating
// the first admin user inside the new tenant.
type Provisioner interface {
	EnqueueTenantProvision(ctx context.Context, tenantID uuid.UUID, name, email, password string) error
}

// Service handles tenant business logic.
type Service struct {
	repo        RepositoryPort
	provisioner Provisioner
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, provisioner Provisioner, logger *slog.Logger) *Service {
	return &Service{repo: repo, provisioner: provisioner, logger: logger}
}

// Create registers a new tenant and enqueues provisioning of its first admin
// account with a generated password.
func (s *Service) Create(ctx context.Context, input CreateTenantInput) (Tenant, error) {
	tenant, err := s.repo.Create(ctx, input)
	if err != nil {
		return Tenant{}, err
	}

	password := generatedPassword()
	if err := s.provisioner.EnqueueTenantProvision(ctx, tenant.ID, tenant.Name, tenant.Email, password); err != nil {
		// The tenant row exists; provisioning can be replayed by an operator.
		s.logger.Error("enqueue tenant provisioning",
			slog.String("tenant", tenant.ID.String()),
			slog.Any("error", err),
		)
	}
	return tenant, nil
}

// Get returns a tenant, restricted to super admins and the tenant's own
// admins.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if err := s.checkAccess(ctx, id); err != nil {
		return Tenant{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// Update overwrites a tenant's profile fields. Same access rule as Get.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (Tenant, error) {
	if err := s.checkAccess(ctx, id); err != nil {
		return Tenant{}, err
	}
	return s.repo.Update(ctx, id, input)
}

// ToggleStatus flips the tenant's active flag. Same access rule as Get.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID) (TenantStatus, error) {
	if err := s.checkAccess(ctx, id); err != nil {
		return TenantStatus{}, err
	}
	active, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		return TenantStatus{}, err
	}
	return TenantStatus{ID: id, Active: active}, nil
}

// List returns a page of tenants. Super admin only; enforced by routing.
func (s *Service) List(ctx context.Context, page shared.Pagination) ([]Tenant, error) {
	return s.repo.List(ctx, page.Limit(), page.Offset())
}

// checkAccess allows super admins everywhere and tenant admins on their own
// tenant. Everyone else gets not-found to avoid confirming the tenant exists.
func (s *Service) checkAccess(ctx context.Context, tenantID uuid.UUID) error {
	principal := tenancy.PrincipalFrom(ctx)
	if principal == nil {
		return shared.ErrUnauthenticated
	}
	if principal.IsSuperAdmin() {
		return nil
	}
	if principal.RolesForTenant(tenantID).Has(roles.TenantAdmin) {
		return nil
	}
	return shared.ErrNotFound
}

func generatedPassword() string {
	return "tmp-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
