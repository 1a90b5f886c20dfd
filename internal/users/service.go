package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindByIDInTenant(ctx context.Context, userID, tenantID uuid.UUID) (User, uuid.UUID, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]User, error)
	EmailAssignedInTenant(ctx context.Context, email string, tenantID uuid.UUID) (bool, error)
	Create(ctx context.Context, tx pgx.Tx, user User, tenantID uuid.UUID, credentialEmail, passwordHash string) error
	SetActive(ctx context.Context, userID, tenantID uuid.UUID, active bool) error
}

// TenantChecker verifies a tenant exists before users are attached to it.
type TenantChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service handles user business logic within the tenant in scope.
type Service struct {
	repo     RepositoryPort
	tenants  TenantChecker
	guard    *tenancy.Guard
	executor *tenancy.Executor
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, tenants TenantChecker, guard *tenancy.Guard, executor *tenancy.Executor, logger *slog.Logger) *Service {
	return &Service{repo: repo, tenants: tenants, guard: guard, executor: executor, logger: logger}
}

// Get returns a user visible in the tenant in scope. The guard runs against
// the tenant of the loaded assignment, not the requested one, so a row the
// repository should not have returned is still rejected.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (User, error) {
	user, assignedTenant, err := s.repo.FindByIDInTenant(ctx, userID, tenancy.Resolve(ctx))
	if err != nil {
		return User{}, err
	}
	if err := s.guard.Check(ctx, assignedTenant); err != nil {
		return User{}, err
	}
	return user, nil
}

// List returns a page of the scoped tenant's users.
func (s *Service) List(ctx context.Context, page shared.Pagination) ([]User, error) {
	return s.repo.ListByTenant(ctx, tenancy.Resolve(ctx), page.Limit(), page.Offset())
}

// Register creates a user with credentials and role assignments inside the
// tenant in scope.
func (s *Service) Register(ctx context.Context, input RegisterUserInput) (User, error) {
	if input.Credentials.Password != input.Credentials.ConfirmPassword {
		return User{}, fmt.Errorf("%w: passwords don't match", shared.ErrValidation)
	}
	assigned, err := roles.ParseSet(input.Roles)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.createUser(ctx, nil, tenancy.Resolve(ctx), input, assigned)
}

// Deactivate disables the user's credentials within the tenant in scope.
func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return s.repo.SetActive(ctx, userID, tenancy.Resolve(ctx), false)
}

// Activate re-enables the user's credentials within the tenant in scope.
func (s *Service) Activate(ctx context.Context, userID uuid.UUID) error {
	return s.repo.SetActive(ctx, userID, tenancy.Resolve(ctx), true)
}

// ProvisionTenantAdmin creates the first admin account of a freshly created
// tenant. It runs in the new tenant's scope with isolation checks suspended,
// since there is no authenticated principal inside that tenant yet.
func (s *Service) ProvisionTenantAdmin(ctx context.Context, tenantID uuid.UUID, name, email, password string) error {
	return s.executor.ExecuteAs(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		return tenancy.WithoutGuard(ctx, func(ctx context.Context) error {
			input := RegisterUserInput{
				FirstName:    name,
				LastName:     "Admin",
				ContactEmail: email,
				Credentials: CredentialsInput{
					Email:    email,
					Password: password,
				},
			}
			_, err := s.createUser(ctx, tx, tenantID, input, roles.NewSet(roles.TenantAdmin))
			return err
		})
	})
}

func (s *Service) createUser(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, input RegisterUserInput, assigned roles.Set) (User, error) {
	exists, err := s.tenants.Exists(ctx, tenantID)
	if err != nil {
		return User{}, err
	}
	if !exists {
		return User{}, fmt.Errorf("tenant %s: %w", tenantID, shared.ErrNotFound)
	}

	taken, err := s.repo.EmailAssignedInTenant(ctx, input.ContactEmail, tenantID)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, fmt.Errorf("%w: contact_email", shared.ErrDuplicateField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Credentials.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		ContactEmail: input.ContactEmail,
		Active:       true,
		Roles:        assigned.Names(),
	}
	if err := s.repo.Create(ctx, tx, user, tenantID, input.Credentials.Email, string(hash)); err != nil {
		return User{}, err
	}

	s.logger.Info("user registered",
		slog.String("user", user.ID.String()),
		slog.String("tenant", tenantID.String()),
	)
	return user, nil
}
