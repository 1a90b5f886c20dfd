package positions

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

// Repository provides PostgreSQL backed persistence for positions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const positionColumns = `id, tenant_id, department_id, title, description, level, is_active, created_at, updated_at`

// Create inserts a position under the given tenant.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, input PositionInput) (Position, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO positions (id, tenant_id, department_id, title, description, level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING `+positionColumns,
		uuid.New(), tenantID, input.DepartmentID, input.Title, input.Description, input.Level,
	)
	pos, err := scanPosition(row)
	if err != nil {
		return Position{}, mapConstraintError(err)
	}
	return pos, nil
}

// FindByID loads a position by primary key without tenant filtering. The
// caller must run the loaded row through the isolation guard.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Position, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
	pos, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, shared.ErrNotFound
	}
	if err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Update overwrites the writable fields, constrained to the tenant.
func (r *Repository) Update(ctx context.Context, id, tenantID uuid.UUID, input PositionInput) (Position, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE positions
		SET department_id = $3, title = $4, description = $5, level = $6, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+positionColumns,
		id, tenantID, input.DepartmentID, input.Title, input.Description, input.Level,
	)
	pos, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, shared.ErrNotFound
	}
	if err != nil {
		return Position{}, mapConstraintError(err)
	}
	return pos, nil
}

// ToggleActive flips the active flag, constrained to the tenant.
func (r *Repository) ToggleActive(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		UPDATE positions
		SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING is_active`, id, tenantID,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return active, err
}

// ExistsByTitle reports whether the tenant already has a position with the
// title, case insensitively.
func (r *Repository) ExistsByTitle(ctx context.Context, tenantID uuid.UUID, title string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM positions
			WHERE tenant_id = $1 AND LOWER(title) = LOWER($2)
		)`, tenantID, title).Scan(&exists)
	return exists, err
}

// ListByTenant returns the tenant's positions ordered by title.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Position, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE tenant_id = $1
		ORDER BY title
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (Position, error) {
	var p Position
	err := row.Scan(&p.ID, &p.TenantID, &p.DepartmentID, &p.Title, &p.Description, &p.Level, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, "positions_"), "_key")
		return fmt.Errorf("%w: %s", shared.ErrDuplicateField, field)
	}
	return err
}
