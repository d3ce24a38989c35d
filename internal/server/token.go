package server

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenIssuer signs and verifies the bearer tokens handed out at login.
type TokenIssuer struct {
	key jwk.Key
	ttl time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	key, err := jwk.Import([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to import jwt key: %w", err)
	}

	return &TokenIssuer{key: key, ttl: ttl}, nil
}

func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks the signature and expiration and returns the subject user id.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256(), t.key), jwt.WithValidate(true))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return subject, nil
}
