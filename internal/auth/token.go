// Package auth resolves bearer credentials to account identities and
// hashes passwords. It never touches the ledger.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"virtual-casino/internal/config"
	"virtual-casino/internal/model"
)

// Resolution failures. Resolve returns exactly one of these on failure.
var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrInvalidCredential   = errors.New("invalid or expired credential")
)

// Identity is a verified caller.
type Identity struct {
	AccountID uuid.UUID
	Role      string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Gate issues and verifies HS256 tokens.
type Gate struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewGate creates a gate from the auth configuration.
func NewGate(cfg config.AuthConfig) *Gate {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Gate{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the account.
func (g *Gate) Issue(accountID uuid.UUID, role string) (string, time.Time, error) {
	now := g.now()
	expires := now.Add(g.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Resolve verifies an Authorization header value of the form "Bearer <token>".
func (g *Gate) Resolve(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, ErrMissingCredential
	}

	scheme, raw, ok := strings.Cut(header, " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return Identity{}, ErrMalformedCredential
	}

	return g.Verify(raw)
}

// Verify checks a bare token string.
func (g *Gate) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Identity{}, ErrMalformedCredential
		}
		return Identity{}, ErrInvalidCredential
	}
	if !token.Valid {
		return Identity{}, ErrInvalidCredential
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}

	role := claims.Role
	if role == "" {
		role = model.RoleUser
	}
	return Identity{AccountID: id, Role: role}, nil
}
