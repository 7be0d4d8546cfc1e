package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenSigner turns session ids into HS256 cookie tokens. The session id is
// the token ID (jti); the token expires together with the stored record.
type tokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func newTokenSigner(secret string, ttl time.Duration) *tokenSigner {
	return &tokenSigner{secret: []byte(secret), ttl: ttl}
}

func (s *tokenSigner) sign(sessionID string) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		ID:        sessionID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func sessionIDFromToken(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.ID == "" {
		return "", errors.New("session ID not found")
	}
	return claims.ID, nil
}

// newSessionID generates an opaque, unguessable session id.
func newSessionID() string {
	return uuid.NewString()
}
