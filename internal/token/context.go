package token

import (
	"context"
	"net/http"
	"strings"
)

type claimsContextKey struct{}

// WithClaims attaches validated claims to the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFrom extracts validated claims, or nil when the request carried no
// valid token.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// FromRequest extracts the compact bearer token from the Authorization
// header, or "" when absent.
func FromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
