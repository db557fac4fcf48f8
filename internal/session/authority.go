// Package session issues and verifies the gateway's signed session tokens.
package session

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/propchain/registry_gateway/internal/errors"
)

// DefaultTTL is the validity window of an issued token.
const DefaultTTL = time.Hour

// Claims are the statements carried by a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authority issues and verifies HS256 session tokens. The signing secret is
// fixed at construction and read-only afterwards. There is no revocation: a
// token stays valid until natural expiry.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

// New creates an authority. The secret must be non-empty; configuration
// loading rejects an unset secret before this point, so an empty value here is
// a programming error.
func New(secret []byte, ttl time.Duration) (*Authority, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authority{secret: secret, ttl: ttl}, nil
}

// TTL returns the configured validity window.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue signs a token for the given username, valid from now until now+TTL.
func (a *Authority) Issue(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Issuer:    "registry-gateway",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.Internal("sign token", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry and returns the username it was
// issued for. Signature integrity is checked before any claim is trusted;
// tampered tokens fail as invalid, structurally sound but stale ones as expired.
func (a *Authority) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.TokenExpired(err)
		}
		return "", errors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.InvalidToken(nil)
	}
	if claims.Username == "" {
		return "", errors.InvalidToken(nil).WithDetails("reason", "missing username claim")
	}
	return claims.Username, nil
}
