package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-hr/helios/internal/roles"
	"github.com/helios-hr/helios/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	FindCredentialsByUserID(ctx context.Context, userID uuid.UUID) (*Credentials, error)
	ListRoleAssignments(ctx context.Context, userID uuid.UUID) ([]RoleAssignment, error)
	HasAssignmentForTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error
	CreateSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindCredentialsByEmail fetches a login record by email, case-insensitive.
func (r *PGRepository) FindCredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, is_active, created_at, updated_at
		FROM user_credentials
		WHERE lower(email) = lower($1)`, email)
	return scanCredentials(row)
}

// FindCredentialsByUserID fetches a login record by owning user.
func (r *PGRepository) FindCredentialsByUserID(ctx context.Context, userID uuid.UUID) (*Credentials, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, is_active, created_at, updated_at
		FROM user_credentials
		WHERE user_id = $1`, userID)
	return scanCredentials(row)
}

func scanCredentials(row pgx.Row) (*Credentials, error) {
	var c Credentials
	var created, updated pgtype.Timestamptz
	if err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.IsActive, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = created.Time
	c.UpdatedAt = updated.Time
	return &c, nil
}

// ListRoleAssignments returns every (tenant, role set) pair held by the user.
func (r *PGRepository) ListRoleAssignments(ctx context.Context, userID uuid.UUID) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, role_names
		FROM user_tenant_roles
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []RoleAssignment
	for rows.Next() {
		var tenantID uuid.UUID
		var names []string
		if err := rows.Scan(&tenantID, &names); err != nil {
			return nil, err
		}
		set, err := roles.ParseSet(names)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, RoleAssignment{TenantID: tenantID, Roles: set})
	}
	return assignments, rows.Err()
}

// HasAssignmentForTenant reports whether the user holds any role inside the
// tenant. The tenant-filtered lookup is the second line of defense behind the
// token's tenant claim.
func (r *PGRepository) HasAssignmentForTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_tenant_roles
			WHERE user_id = $1 AND tenant_id = $2
		)`, userID, tenantID).Scan(&exists)
	return exists, err
}

// UpdatePasswordHash stores a new password hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_credentials SET password_hash = $2, updated_at = now()
		WHERE user_id = $1`, userID, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateEmail stores a new login email.
func (r *PGRepository) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_credentials SET email = $2, updated_at = now()
		WHERE user_id = $1`, userID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a login session record for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC(), s.IP, s.UserAgent)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions prunes session rows whose tokens have expired.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
