// Package token issues and validates the signed bearer tokens used by the
// request pipeline, with server-side invalidation backed by a Redis
// blacklist.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/helios-hr/helios/internal/shared"
	"github.com/helios-hr/helios/internal/tenancy"
)

const blacklistKeyPrefix = "token_blacklist:"

var (
	// ErrNoTenant is returned when issuing is attempted without a resolved
	// tenant. A token is only ever valid for the tenant it was issued for.
	ErrNoTenant = errors.New("token: cannot issue token without a tenant")

	// ErrBlacklistUnavailable is returned when the revocation store cannot be
	// reached. Validation fails closed: an unreachable blacklist must not let
	// revoked tokens through.
	ErrBlacklistUnavailable = errors.New("token: blacklist store unavailable")
)

// Claims are the signed bearer token contents.
type Claims struct {
	UserID   uuid.UUID `json:"uid"`
	TenantID uuid.UUID `json:"tid"`
	Roles    []string  `json:"roles"`
	jwt.RegisteredClaims
}

// Service signs, validates, and revokes bearer tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. The symmetric secret is configured once at
// process start.
func NewService(secret string, ttl time.Duration, client *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  client,
		logger: logger,
		now:    time.Now,
	}
}

// Issue signs a token for the principal scoped to tenantID and returns the
// compact form along with its claims. Only the role set held for that tenant
// is embedded; the full cross-tenant assignment map never leaves the server.
func (s *Service) Issue(p *tenancy.Principal, tenantID uuid.UUID) (string, *Claims, error) {
	if tenantID == uuid.Nil {
		return "", nil, ErrNoTenant
	}
	now := s.now().UTC()
	claims := &Claims{
		UserID:   p.UserID,
		TenantID: tenantID,
		Roles:    p.RolesForTenant(tenantID).Names(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Validate verifies signature, expiry, subject, and blacklist status. All
// four checks are mandatory; any failure yields shared.ErrUnauthenticated so
// callers cannot tell a forged token from an expired or revoked one. The
// distinct causes are logged at Debug for forensics.
func (s *Service) Validate(ctx context.Context, tokenString, expectedIdentity string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("reason", err.Error()))
		return nil, shared.ErrUnauthenticated
	}
	if claims.Subject != expectedIdentity {
		s.logger.Debug("token rejected", slog.String("reason", "subject mismatch"))
		return nil, shared.ErrUnauthenticated
	}

	revoked, err := s.isBlacklisted(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	if revoked {
		s.logger.Debug("token rejected", slog.String("reason", "blacklisted"))
		return nil, shared.ErrUnauthenticated
	}
	return claims, nil
}

// Invalidate blacklists the token for exactly its remaining lifetime, so the
// entry expires at the same moment the token would have. Invalidating an
// already expired token is a no-op. The TTL is always computed from the
// claims, never from previously stored state.
func (s *Service) Invalidate(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return shared.ErrUnauthenticated
	}
	remaining := claims.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistKeyPrefix+tokenString, "1", remaining).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return nil
}

// ExtractTenantID decodes the tenant claim from a well-formed token without
// verifying it. Used by the tenant resolution stage for routing only; trust
// still requires Validate.
func (s *Service) ExtractTenantID(tokenString string) (uuid.UUID, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("token: malformed: %w", err)
	}
	return claims.TenantID, nil
}

// ExtractClaimsUnverified decodes the full claim set without verifying the
// signature. Same caveat as ExtractTenantID.
func (s *Service) ExtractClaimsUnverified(tokenString string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, fmt.Errorf("token: malformed: %w", err)
	}
	return &claims, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("missing expiry")
	}
	return &claims, nil
}

func (s *Service) isBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	n, err := s.redis.Exists(ctx, blacklistKeyPrefix+tokenString).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
