package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/helios-hr/helios/internal/roles"
)

// Credentials is a user's login record.
type Credentials struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleAssignment grants a role set inside one tenant.
type RoleAssignment struct {
	TenantID uuid.UUID
	Roles    roles.Set
}

// Session records an issued token for auditing. The token itself stays
// stateless; revocation goes through the blacklist, not this table.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
