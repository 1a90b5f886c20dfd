package tenants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-hr/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tenants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, email, phone, industry, is_active, created_at, updated_at`

// Create inserts a tenant and returns the stored row.
func (r *Repository) Create(ctx context.Context, input CreateTenantInput) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (id, name, email, phone, industry, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+tenantColumns,
		uuid.New(), input.Name, input.Email, input.Phone, input.Industry,
	)
	tenant, err := scanTenant(row)
	if err != nil {
		return Tenant{}, mapConstraintError(err)
	}
	return tenant, nil
}

// FindByID returns the tenant with the given id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	tenant, err := scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, shared.ErrNotFound
	}
	if err != nil {
		return Tenant{}, err
	}
	return tenant, nil
}

// Exists reports whether a tenant row exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Update overwrites the mutable fields of a tenant.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET name = $2, email = $3, phone = $4, industry = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, input.Name, input.Email, input.Phone, input.Industry,
	)
	tenant, err := scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, shared.ErrNotFound
	}
	if err != nil {
		return Tenant{}, mapConstraintError(err)
	}
	return tenant, nil
}

// ToggleActive flips the active flag and returns the new value.
func (r *Repository) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING is_active`, id,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return active, err
}

// List returns tenants ordered by name with offset pagination.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Tenant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		ORDER BY name
		LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tenant)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.Industry, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// mapConstraintError translates a unique violation into a duplicate-field
// error naming the offending column, derived from the constraint name.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, "tenants_"), "_key")
		return fmt.Errorf("%w: %s", shared.ErrDuplicateField, field)
	}
	return err
}
