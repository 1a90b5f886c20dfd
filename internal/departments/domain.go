package departments

import (
	"time"

	"github.com/google/uuid"
)

// Department is a tenant-scoped organisational unit.
type Department struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DepartmentInput carries the writable fields of a department.
type DepartmentInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}
