package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// SessionClaims wrap the server-side session ID. The token deliberately
// carries no identity or role information: the session row is the source of
// truth and roles are re-read from the database on every request.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer signs and validates session cookie tokens.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer with the given secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// SignSession creates a signed token wrapping the session ID
func (s *Signer) SignSession(sessionID string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSession validates the token and returns the embedded session ID
func (s *Signer) ParseSession(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.SessionID, nil
}

// NewSessionID generates an opaque session identifier
func NewSessionID() string {
	return uuid.New().String()
}

// NewInviteToken generates a single-use invite token
func NewInviteToken() string {
	return uuid.New().String()
}
