package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Validation is the outcome of a resume/validate call. A missing or expired
// session is a routine invalid result, not an error.
type Validation struct {
	Valid          bool
	OrganizationID string
	UserIdentifier string
}

// Manager creates, validates and expires chat sessions on top of a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewToken builds an unguessable session token: random UUID plus a base-36
// millisecond timestamp suffix. Collision space is large enough that no
// retry logic exists.
func NewToken(now time.Time) string {
	return uuid.NewString() + "_" + strconv.FormatInt(now.UnixMilli(), 36)
}

// Initialize persists a new session and returns its token.
func (m *Manager) Initialize(ctx context.Context, orgID, domain, userIdentifier string, duration time.Duration) (string, error) {
	now := m.now()
	s := Session{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Token:          NewToken(now),
		UserIdentifier: userIdentifier,
		Domain:         domain,
		ExpiresAt:      now.Add(duration),
		CreatedAt:      now,
	}
	if err := m.store.Insert(ctx, s); err != nil {
		return "", err
	}
	return s.Token, nil
}

// Validate looks a session up by token. An expired session is deleted
// lazily and reported invalid.
func (m *Manager) Validate(ctx context.Context, token string) (Validation, error) {
	s, err := m.store.GetByToken(ctx, token)
	if err != nil {
		if err == ErrNotFound {
			return Validation{}, nil
		}
		return Validation{}, err
	}
	if s.ExpiresAt.Before(m.now()) {
		_ = m.store.DeleteByToken(ctx, token)
		return Validation{}, nil
	}
	return Validation{Valid: true, OrganizationID: s.OrganizationID, UserIdentifier: s.UserIdentifier}, nil
}

// Sweep deletes every expired session and returns the number removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}
