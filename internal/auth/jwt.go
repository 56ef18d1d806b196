// Package auth issues and checks the session tokens that stand for a Principal.
//
// SIGN-IN FLOW:
//  1. POST /login (form) or /api/auth/signin (JSON) with email + password,
//     or the GitHub OAuth round trip via /auth/github/login → /callback
//  2. The auth service verifies the credentials and calls TokenService.Generate
//  3. Browsers get the token in the HttpOnly "token" cookie; the API client
//     keeps it and sends "Authorization: Bearer <token>"
//  4. Authenticate middleware validates the token on every request, asks the
//     Revoker whether it was signed out, loads the profile and puts a
//     *session.Session in the request context
//
// Tokens are HS256 JWTs. Besides the standard claims they carry the principal's
// email (so /api/me needs no lookup) and a random token id ("jti") that sign-out
// revokes until the token's own expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/streambox/internal/model"
)

const (
	issuer = "streambox"

	// DefaultTokenTTL is how long a session lasts without signing in again.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrTokenExpired is returned by Validate for well-formed but expired tokens.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; a non-positive ttl uses DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Claims is what a validated token says about its bearer.
type Claims struct {
	PrincipalID string
	Email       string
	TokenID     string
	ExpiresAt   time.Time
}

// Principal returns the identity named by the token.
func (c *Claims) Principal() *model.Principal {
	return &model.Principal{ID: c.PrincipalID, Email: c.Email}
}

// jwtClaims is the wire payload: "sub" holds the principal id, "jti" the token id.
type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate signs a token for p that expires after the service TTL.
func (s *TokenService) Generate(p *model.Principal) (string, *Claims, error) {
	return s.GenerateWithDuration(p, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(p *model.Principal, d time.Duration) (string, *Claims, error) {
	if p == nil || p.ID == "" {
		return "", nil, errors.New("auth: cannot issue a token without a principal id")
	}

	now := s.now()
	c := jwtClaims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, toClaims(&c), nil
}

// Validate verifies signature, issuer, algorithm and expiry and returns the
// token's claims. Revocation is checked separately (see Revoker).
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwtClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, errors.New("auth: token has no id")
	}

	return toClaims(c), nil
}

func toClaims(c *jwtClaims) *Claims {
	out := &Claims{
		PrincipalID: c.Subject,
		Email:       c.Email,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
