package positions

import (
	"time"

	"github.com/google/uuid"
)

// Position is a tenant-scoped job definition attached to a department.
type Position struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	DepartmentID uuid.UUID `json:"department_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Level        string    `json:"level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PositionInput carries the writable fields of a position.
type PositionInput struct {
	DepartmentID uuid.UUID `json:"department_id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description" validate:"required"`
	Level        string    `json:"level" validate:"required"`
}
