// Package token issues and validates HS256 session tokens.
package token

import (
	"context"
	"errors"
	"time"

	"smartgn/internal/authz"
	"smartgn/internal/identity/models"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/middleware/auth"
	"smartgn/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the session token lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// Subject is the principal a token is issued for.
type Subject struct {
	ID    uuid.UUID
	Email string
	Role  authz.Role
	Kind  models.Kind
}

// Token is a signed session token.
type Token struct {
	Value     string    `json:"token"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTService handles session token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewJWTService creates a service. A non-positive ttl selects DefaultTTL.
func NewJWTService(signingKey, issuer string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock replaces the validation clock. Issue uses the request time.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// TTL returns the configured token lifetime.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for sub, stamped with the request time from ctx.
func (s *JWTService) Issue(ctx context.Context, sub Subject) (Token, error) {
	now := requestcontext.Now(ctx)
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email: sub.Email,
		Role:  string(sub.Role),
		Type:  string(sub.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.issuer,
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return Token{Value: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry, and returns
// the claims the auth middleware needs.
func (s *JWTService) ValidateToken(tokenString string) (*auth.Claims, error) {
	claims := new(SessionClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token issuer")
		default:
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	return &auth.Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		Kind:      claims.Type,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
