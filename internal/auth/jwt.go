// Package auth resolves the calling user. Account management lives elsewhere;
// this package only turns a bearer token into a user id.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oggyb/matcha/internal/config"
	svcErr "github.com/oggyb/matcha/internal/errors"
)

// Verifier checks HS256 tokens whose subject is the numeric user id.
type Verifier struct {
	secret         []byte
	ttl            time.Duration
	headerIdentity bool
}

// NewVerifier builds a verifier from config.
// An empty secret is only accepted together with header identity (development).
func NewVerifier(cfg *config.Config) (*Verifier, error) {
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.HeaderIdentity {
		return nil, fmt.Errorf("JWT_SECRET is required unless AUTH_HEADER_IDENTITY is enabled")
	}
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Verifier{
		secret:         []byte(cfg.Auth.JWTSecret),
		ttl:            ttl,
		headerIdentity: cfg.Auth.HeaderIdentity,
	}, nil
}

// IssueToken signs a token for userID. Used by seed tooling and tests.
//
// Example:
//
//	token, _ := verifier.IssueToken(42)
func (v *Verifier) IssueToken(userID uint64) (string, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("no signing secret configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns its user id.
// Every failure wraps errors.ErrUnauthenticated.
func (v *Verifier) Verify(tokenString string) (uint64, error) {
	if len(v.secret) == 0 {
		return 0, fmt.Errorf("token auth disabled: %w", svcErr.ErrUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %v: %w", err, svcErr.ErrUnauthenticated)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", svcErr.ErrUnauthenticated)
	}

	return parseUserID(claims.Subject)
}

func parseUserID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q: %w", raw, svcErr.ErrUnauthenticated)
	}
	return id, nil
}
