package tenants

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an organisation hosted on the platform. The tenants table is a
// global registry, not tenant-scoped data; access to individual rows is
// restricted in the service layer instead.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Industry  string    `json:"industry"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTenantInput carries the fields needed to register a tenant.
type CreateTenantInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Industry string `json:"industry" validate:"required"`
}

// UpdateTenantInput carries the fields of a tenant update. All fields are
// required, matching the create contract.
type UpdateTenantInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Industry string `json:"industry" validate:"required"`
}

// TenantStatus reports the active flag after a toggle.
type TenantStatus struct {
	ID     uuid.UUID `json:"id"`
	Active bool      `json:"active"`
}
