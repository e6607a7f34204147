package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
)

const bearerPrefix = "Bearer "

var (
	// ErrMissingToken ...
	ErrMissingToken = errors.New("missing or invalid authorization header")
	// ErrInvalidToken ...
	ErrInvalidToken = errors.New("invalid or expired token")
)

type principalKey struct{}

// PrincipalFromContext returns the identity of the authenticated caller, or
// an empty principal.
func PrincipalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// NewToken returns an HS256 signed token with subject as caller identity.
// A zero ttl makes a token that never expires, a negative one a token that is
// already expired.
func NewToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) <= 0 {
		return "", fmt.Errorf("missing auth secret")
	}
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("missing token subject")
	}

	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:  subject,
		IssuedAt: now.Unix(),
	}
	if ttl != 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies the token and returns the caller identity carried in
// its subject.
func ParseToken(secret []byte, tokenString string) (domain.Principal, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return domain.Principal(claims.Subject), nil
}

func bearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
