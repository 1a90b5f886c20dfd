package departments

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

// Repository provides PostgreSQL backed persistence for departments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const departmentColumns = `id, tenant_id, name, description, is_active, created_at, updated_at`

// Create inserts a department under the given tenant.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, input DepartmentInput) (Department, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO departments (id, tenant_id, name, description, is_active)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING `+departmentColumns,
		uuid.New(), tenantID, input.Name, input.Description,
	)
	dept, err := scanDepartment(row)
	if err != nil {
		return Department{}, mapConstraintError(err)
	}
	return dept, nil
}

// FindByID loads a department by primary key without tenant filtering. The
// caller must run the loaded row through the isolation guard.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id)
	dept, err := scanDepartment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, shared.ErrNotFound
	}
	if err != nil {
		return Department{}, err
	}
	return dept, nil
}

// Update overwrites the writable fields, constrained to the tenant.
func (r *Repository) Update(ctx context.Context, id, tenantID uuid.UUID, input DepartmentInput) (Department, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE departments
		SET name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+departmentColumns,
		id, tenantID, input.Name, input.Description,
	)
	dept, err := scanDepartment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, shared.ErrNotFound
	}
	if err != nil {
		return Department{}, mapConstraintError(err)
	}
	return dept, nil
}

// ToggleActive flips the active flag, constrained to the tenant.
func (r *Repository) ToggleActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		UPDATE departments
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING is_active`, id, tenantID,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return active, err
}

// ExistsByName reports whether the tenant already has a department with the
// name, case insensitively.
func (r *Repository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM departments
			WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)
		)`, tenantID, name).Scan(&exists)
	return exists, err
}

// ExistsInTenant reports whether the department id belongs to the tenant.
func (r *Repository) ExistsInTenant(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM departments
			WHERE id = $1 AND tenant_id = $2
		)`, id, tenantID).Scan(&exists)
	return exists, err
}

// ListByTenant returns the tenant's departments ordered by name.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+departmentColumns+`
		FROM departments
		WHERE tenant_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.TenantID, &d.Name, &d.Description, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, "departments_"), "_key")
		return fmt.Errorf("%w: %s", shared.ErrDuplicateField, field)
	}
	return err
}
