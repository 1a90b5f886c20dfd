package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a person employed by one or more tenants. The row itself is
// global; tenant membership lives in the role assignments, and every lookup
// is filtered through the assignment for the tenant in scope.
type User struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	ContactEmail string    `json:"contact_email"`
	Active       bool      `json:"active"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialsInput carries the login credential fields of a registration.
type CredentialsInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// RegisterUserInput carries the fields needed to register a user inside the
// tenant in scope.
type RegisterUserInput struct {
	FirstName    string           `json:"first_name" validate:"required"`
	LastName     string           `json:"last_name" validate:"required"`
	ContactEmail string           `json:"contact_email" validate:"required,email"`
	Roles        []string         `json:"roles" validate:"required,min=1"`
	Credentials  CredentialsInput `json:"credentials" validate:"required"`
}
