package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the auth token sent with every remote request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the token unchanged.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// JWTTokenSource signs short-lived HS256 tokens.
type JWTTokenSource struct {
	Secret  []byte
	Subject string
	TTL     time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Token signs a fresh token.
func (s *JWTTokenSource) Token(context.Context) (string, error) {
	if len(s.Secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	issued := now()
	claims := jwt.RegisteredClaims{
		Subject:   s.Subject,
		Issuer:    "kanstore",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks an HS256 token signed with secret and returns its claims.
func VerifyToken(token string, secret []byte) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("kanstore"))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return claims, nil
}
