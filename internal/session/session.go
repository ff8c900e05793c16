// Package session keeps login sessions keyed by an opaque token.
package session

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is used when a caller passes a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("session not found")

// Session is one authenticated browser session.
type Session struct {
	Token     string         `json:"token"`
	Profile   map[string]any `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether s has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, profile map[string]any, ttl time.Duration) (string, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
