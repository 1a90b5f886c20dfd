package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-hr/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence for users. Every query
// joins through user_tenant_roles so rows outside the given tenant are
// invisible rather than forbidden.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userSelect = `
	SELECT u.id, u.first_name, u.last_name, u.contact_email,
	       c.is_active, utr.role_names, u.created_at, u.updated_at
	FROM users u
	JOIN user_credentials c ON c.user_id = u.id
	JOIN user_tenant_roles utr ON utr.user_id = u.id`

// FindByIDInTenant returns the user if it has an assignment in the tenant,
// along with the tenant of the matched assignment so callers can run it
// through the isolation guard.
func (r *Repository) FindByIDInTenant(ctx context.Context, userID, tenantID uuid.UUID) (User, uuid.UUID, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.contact_email,
		       c.is_active, utr.role_names, u.created_at, u.updated_at,
		       utr.tenant_id
		FROM users u
		JOIN user_credentials c ON c.user_id = u.id
		JOIN user_tenant_roles utr ON utr.user_id = u.id
		WHERE u.id = $1 AND utr.tenant_id = $2`, userID, tenantID)
	var u User
	var assignedTenant uuid.UUID
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.ContactEmail, &u.Active, &u.Roles, &u.CreatedAt, &u.UpdatedAt, &assignedTenant)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, uuid.Nil, shared.ErrNotFound
	}
	if err != nil {
		return User{}, uuid.Nil, err
	}
	return u, assignedTenant, nil
}

// ListByTenant returns the tenant's users ordered by last name.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx, userSelect+`
		WHERE utr.tenant_id = $1
		ORDER BY u.last_name, u.first_name
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// EmailAssignedInTenant reports whether a user with the contact email already
// has an assignment in the tenant. The same person may exist in several
// tenants; only a duplicate within one tenant is a conflict.
func (r *Repository) EmailAssignedInTenant(ctx context.Context, email string, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM users u
			JOIN user_tenant_roles utr ON utr.user_id = u.id
			WHERE LOWER(u.contact_email) = LOWER($1) AND utr.tenant_id = $2
		)`, email, tenantID).Scan(&exists)
	return exists, err
}

// Create inserts the user, its credentials and its tenant assignment in one
// transaction. When tx is non-nil the statements run on it instead of the
// pool, letting callers compose the insert into a larger unit of work.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, user User, tenantID uuid.UUID, credentialEmail, passwordHash string) error {
	run := func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, first_name, last_name, contact_email)
			VALUES ($1, $2, $3, $4)`,
			user.ID, user.FirstName, user.LastName, user.ContactEmail,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_credentials (user_id, email, password_hash, is_active)
			VALUES ($1, $2, $3, TRUE)`,
			user.ID, credentialEmail, passwordHash,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_tenant_roles (user_id, tenant_id, role_names)
			VALUES ($1, $2, $3)`,
			user.ID, tenantID, user.Roles,
		)
		return err
	}
	if tx != nil {
		return run(tx)
	}
	return pgx.BeginFunc(ctx, r.pool, run)
}

// SetActive flips the credential active flag for a user in the tenant.
func (r *Repository) SetActive(ctx context.Context, userID, tenantID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_credentials c
		SET is_active = $3, updated_at = NOW()
		FROM user_tenant_roles utr
		WHERE c.user_id = $1 AND utr.user_id = c.user_id AND utr.tenant_id = $2`,
		userID, tenantID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.ContactEmail, &u.Active, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
