// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

// Stable machine-readable error codes.
const (
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeInvalidTenantHeader = "invalid_tenant_header"
	CodeTenantMismatch      = "tenant_mismatch"
	CodeUnauthenticated     = "unauthenticated"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeDuplicateField      = "duplicate_field"
	CodeValidationFailed    = "validation_failed"
	CodeInternal            = "internal_error"
)

// RespondError maps domain errors to HTTP responses. Authentication failures
// all collapse to the same 401 body regardless of cause so callers cannot
// probe which check failed.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", CodeRateLimitExceeded, "Login attempts exceeded. Please try again later.")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", CodeInvalidCredentials, "Invalid credentials.")
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", CodeUnauthenticated, "Authentication required.")
	case errors.Is(err, shared.ErrInvalidTenantHeader):
		Problem(w, http.StatusBadRequest, "Bad Request", CodeInvalidTenantHeader, "Missing or malformed tenant identifier.")
	case errors.Is(err, tenancy.ErrTenantMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", CodeTenantMismatch, "Operation crosses the active tenant boundary.")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", CodeForbidden, "You do not have access to this resource.")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", CodeNotFound, "Resource not found.")
	case errors.Is(err, shared.ErrDuplicateField):
		Problem(w, http.StatusConflict, "Duplicate", CodeDuplicateField, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", CodeValidationFailed, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", CodeInternal, "")
	}
}

// ValidationProblem reports request DTO validation failures.
func ValidationProblem(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusBadRequest, "Validation Failed", CodeValidationFailed, detail)
}
