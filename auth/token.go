// Package auth issues and verifies the bearer tokens that guard both the
// CRUD endpoints and realtime connection admission.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken covers missing, malformed, badly signed and expired
// tokens, and tokens whose payload lacks a resolvable user id.
var ErrInvalidToken = errors.New("invalid token")

// Tokens signs and verifies HS256 access tokens carrying a user_id claim.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed access token for the given user.
func (t *Tokens) Issue(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature and expiry and returns the user id from the
// token's payload.
func (t *Tokens) Verify(token string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	parsed, err := parser.Parse(token, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// UserIDFromAuthHeader extracts and verifies the bearer token from an
// Authorization header value.
func (t *Tokens) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", ErrInvalidToken
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}
	return t.Verify(parts[1])
}
