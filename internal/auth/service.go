package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	principal singleflight.Group
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials against the tenant in
// scope and returns the principal with its active roles resolved for that
// tenant. Every failure mode collapses to ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*tenancy.Principal, error) {
	p, err := s.LoadPrincipal(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash()), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return p, nil
}

// LoadPrincipal builds a principal for the identity, scoped to the tenant in
// scope: the lookup requires a role assignment inside that tenant, so a token
// replayed against a foreign tenant finds nobody even before the guard runs.
// Concurrent lookups for the same (tenant, identity) are collapsed.
func (s *Service) LoadPrincipal(ctx context.Context, email string) (*tenancy.Principal, error) {
	tenantID := tenancy.Resolve(ctx)
	key := tenantID.String() + "|" + email

	// The flight outlives the leader request: a cancelled leader must not
	// poison the result shared with collapsed followers.
	flightCtx := context.WithoutCancel(ctx)
	result, err, _ := s.principal.Do(key, func() (any, error) {
		return s.loadPrincipal(flightCtx, email, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*tenancy.Principal), nil
}

func (s *Service) loadPrincipal(ctx context.Context, email string, tenantID uuid.UUID) (*tenancy.Principal, error) {
	creds, err := s.repo.FindCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !creds.IsActive {
		return nil, shared.ErrNotFound
	}

	ok, err := s.repo.HasAssignmentForTenant(ctx, creds.UserID, tenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNotFound
	}

	assignments, err := s.repo.ListRoleAssignments(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	byTenant := make(map[uuid.UUID]roles.Set, len(assignments))
	for _, a := range assignments {
		byTenant[a.TenantID] = a.Roles
	}
	return tenancy.NewPrincipal(creds.UserID, creds.Email, creds.PasswordHash, byTenant, tenantID), nil
}

// ChangePassword rotates the caller's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: newPassword and confirmPassword do not match", shared.ErrValidation)
	}
	creds, err := s.repo.FindCredentialsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(oldPassword)); err != nil {
		return shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(newPassword)) == nil {
		return fmt.Errorf("%w: new password must differ from the old password", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, userID, string(hash))
}

// ChangeEmail updates the caller's login email. The new address must differ.
func (s *Service) ChangeEmail(ctx context.Context, userID uuid.UUID, email string) error {
	creds, err := s.repo.FindCredentialsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if creds.Email == email {
		return fmt.Errorf("%w: new email must differ from the old email", shared.ErrValidation)
	}
	return s.repo.UpdateEmail(ctx, userID, email)
}

// RegisterSession persists the session metadata.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
		IP:        ip,
		UserAgent: ua,
	})
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// SweepExpiredSessions prunes session rows whose tokens have expired.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, time.Now())
}
