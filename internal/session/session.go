// Package session issues and validates the opaque server-side tokens that
// represent an initialized chat session.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Session is one ephemeral chat session row. UserIdentifier and Domain are
// empty for anonymous basic-mode sessions.
type Session struct {
	ID             string
	OrganizationID string
	Token          string
	UserIdentifier string
	Domain         string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

type Store interface {
	Insert(ctx context.Context, s Session) error
	// GetByToken returns ErrNotFound when no session carries the token.
	GetByToken(ctx context.Context, token string) (Session, error)
	DeleteByToken(ctx context.Context, token string) error
	// DeleteExpired removes all sessions past cutoff and returns the count.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
