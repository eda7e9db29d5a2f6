package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionFromToken builds a Session for token. When the token happens to be a JWT its
// iat/exp claims are read without verification; they only feed user-facing messages.
func SessionFromToken(token string) Session {
	s := Session{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return s
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s
}

// ExpiryMessage describes the session lifetime for display.
func (s Session) ExpiryMessage(now time.Time) string {
	if s.ExpiresAt.IsZero() {
		return "no expiry reported by provider"
	}
	if now.After(s.ExpiresAt) {
		return fmt.Sprintf("expired %s ago (the provider decides on next use)", now.Sub(s.ExpiresAt).Round(time.Second))
	}
	return fmt.Sprintf("expires in %s", s.ExpiresAt.Sub(now).Round(time.Second))
}
