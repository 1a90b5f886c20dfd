package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

type mockRepository struct {
	credsByEmail map[string]*Credentials
	credsByID    map[uuid.UUID]*Credentials
	assignments  map[uuid.UUID][]RoleAssignment
	sessions     map[string]Session
	passwordSet  map[uuid.UUID]string
	emailSet     map[uuid.UUID]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		credsByEmail: map[string]*Credentials{},
		credsByID:    map[uuid.UUID]*Credentials{},
		assignments:  map[uuid.UUID][]RoleAssignment{},
		sessions:     map[string]Session{},
		passwordSet:  map[uuid.UUID]string{},
		emailSet:     map[uuid.UUID]string{},
	}
}

func (m *mockRepository) addUser(email, password string, active bool, tenantRoles map[uuid.UUID]roles.Set) uuid.UUID {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	creds := &Credentials{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
	}
	m.credsByEmail[email] = creds
	m.credsByID[creds.UserID] = creds
	for tenantID, set := range tenantRoles {
		m.assignments[creds.UserID] = append(m.assignments[creds.UserID], RoleAssignment{TenantID: tenantID, Roles: set})
	}
	return creds.UserID
}

func (m *mockRepository) FindCredentialsByEmail(_ context.Context, email string) (*Credentials, error) {
	if c, ok := m.credsByEmail[email]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) FindCredentialsByUserID(_ context.Context, userID uuid.UUID) (*Credentials, error) {
	if c, ok := m.credsByID[userID]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) ListRoleAssignments(_ context.Context, userID uuid.UUID) ([]RoleAssignment, error) {
	return m.assignments[userID], nil
}

func (m *mockRepository) HasAssignmentForTenant(_ context.Context, userID, tenantID uuid.UUID) (bool, error) {
	for _, a := range m.assignments[userID] {
		if a.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash string) error {
	m.passwordSet[userID] = hash
	return nil
}

func (m *mockRepository) UpdateEmail(_ context.Context, userID uuid.UUID, email string) error {
	m.emailSet[userID] = email
	return nil
}

func (m *mockRepository) CreateSession(_ context.Context, s Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepository) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockRepository) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	var removed int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func scopedContext(tenantID uuid.UUID) context.Context {
	ctx, scope := tenancy.EnsureScope(context.Background())
	scope.Set(tenantID)
	return ctx
}

func TestAuthenticateResolvesTenantRoles(t *testing.T) {
	repo := newMockRepository()
	tenantA := uuid.New()
	tenantB := uuid.New()
	repo.addUser("hr@acme.test", "secret-pw", true, map[uuid.UUID]roles.Set{
		tenantA: roles.NewSet(roles.HROfficer),
		tenantB: roles.NewSet(roles.Employee),
	})

	svc := NewService(repo)
	principal, err := svc.Authenticate(scopedContext(tenantA), "hr@acme.test", "secret-pw")
	require.NoError(t, err)
	require.True(t, principal.HasRole(roles.HROfficer))
	require.False(t, principal.HasRole(roles.Employee))
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	repo.addUser("hr@acme.test", "secret-pw", true, map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.HROfficer),
	})

	svc := NewService(repo)
	_, err := svc.Authenticate(scopedContext(tenantID), "hr@acme.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsUnknownIdentity(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.Authenticate(scopedContext(uuid.New()), "nobody@acme.test", "pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveAccount(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	repo.addUser("gone@acme.test", "secret-pw", false, map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.Employee),
	})

	svc := NewService(repo)
	_, err := svc.Authenticate(scopedContext(tenantID), "gone@acme.test", "secret-pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoadPrincipalRequiresAssignmentInScopedTenant(t *testing.T) {
	repo := newMockRepository()
	home := uuid.New()
	foreign := uuid.New()
	repo.addUser("hr@acme.test", "secret-pw", true, map[uuid.UUID]roles.Set{
		home: roles.NewSet(roles.HROfficer),
	})

	svc := NewService(repo)
	_, err := svc.LoadPrincipal(scopedContext(foreign), "hr@acme.test")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

// cancelAwareRepository fails lookups once the request context is cancelled,
// the way a pgx query would.
type cancelAwareRepository struct {
	*mockRepository
}

func (r *cancelAwareRepository) FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.mockRepository.FindCredentialsByEmail(ctx, email)
}

func TestLoadPrincipalSurvivesCancelledCaller(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	repo.addUser("hr@acme.test", "secret-pw", true, map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.HROfficer),
	})
	svc := NewService(&cancelAwareRepository{repo})

	ctx, cancel := context.WithCancel(scopedContext(tenantID))
	cancel()

	p, err := svc.LoadPrincipal(ctx, "hr@acme.test")
	require.NoError(t, err)
	require.Equal(t, "hr@acme.test", p.Email)
}

func TestChangePasswordRules(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	userID := repo.addUser("hr@acme.test", "old-password", true, map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.HROfficer),
	})
	svc := NewService(repo)
	ctx := scopedContext(tenantID)

	err := svc.ChangePassword(ctx, userID, "old-password", "new-password", "different")
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ChangePassword(ctx, userID, "wrong-old", "new-password", "new-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, userID, "old-password", "old-password", "old-password")
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ChangePassword(ctx, userID, "old-password", "new-password", "new-password")
	require.NoError(t, err)
	if _, ok := repo.passwordSet[userID]; !ok {
		t.Fatal("expected password hash to be updated")
	}
}

func TestChangeEmailMustDiffer(t *testing.T) {
	repo := newMockRepository()
	tenantID := uuid.New()
	userID := repo.addUser("hr@acme.test", "pw-123456", true, map[uuid.UUID]roles.Set{
		tenantID: roles.NewSet(roles.HROfficer),
	})
	svc := NewService(repo)
	ctx := scopedContext(tenantID)

	require.ErrorIs(t, svc.ChangeEmail(ctx, userID, "hr@acme.test"), shared.ErrValidation)
	require.NoError(t, svc.ChangeEmail(ctx, userID, "people@acme.test"))
	require.Equal(t, "people@acme.test", repo.emailSet[userID])
}

func TestSweepExpiredSessions(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, svc.RegisterSession(ctx, "stale", userID, time.Now().Add(-time.Hour), "", ""))
	require.NoError(t, svc.RegisterSession(ctx, "live", userID, time.Now().Add(time.Hour), "", ""))

	removed, err := svc.SweepExpiredSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	if _, ok := repo.sessions["live"]; !ok {
		t.Fatal("expected live session to survive the sweep")
	}
}

var errBoom = errors.New("boom")

type failingRepository struct{ mockRepository }

func (f *failingRepository) FindCredentialsByEmail(context.Context, string) (*Credentials, error) {
	return nil, errBoom
}

func TestAuthenticateMasksRepositoryErrors(t *testing.T) {
	svc := NewService(&failingRepository{})
	_, err := svc.Authenticate(scopedContext(uuid.New()), "hr@acme.test", "pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
