package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, expired, or revoked bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateField indicates a unique-constraint violation.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrRateLimited indicates the login attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrInvalidTenantHeader indicates a missing or malformed X-Tenant-ID value.
	ErrInvalidTenantHeader = errors.New("invalid tenant header")
	// ErrValidation indicates a request that fails business validation.
	ErrValidation = errors.New("validation failed")
)
