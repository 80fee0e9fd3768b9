// internal/session/postgres.go
package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implements Store backed by the chat_sessions table (created by
// tenants.EnsureSchema).
type pgStore struct {
	dbPool *pgxpool.Pool
}

func NewPostgresStore(dbPool *pgxpool.Pool) Store {
	return &pgStore{dbPool: dbPool}
}

func (p *pgStore) Insert(ctx context.Context, s Session) error {
	_, err := p.dbPool.Exec(ctx, `INSERT INTO chat_sessions(id, organization_id, session_token, user_identifier, domain, expires_at, created_at)
	  VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7)`,
		s.ID, s.OrganizationID, s.Token, s.UserIdentifier, s.Domain, s.ExpiresAt, s.CreatedAt)
	return err
}

func (p *pgStore) GetByToken(ctx context.Context, token string) (Session, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT id, organization_id, session_token, COALESCE(user_identifier,''), COALESCE(domain,''), expires_at, created_at FROM chat_sessions WHERE session_token=$1`, token)
	var s Session
	if err := row.Scan(&s.ID, &s.OrganizationID, &s.Token, &s.UserIdentifier, &s.Domain, &s.ExpiresAt, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (p *pgStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := p.dbPool.Exec(ctx, `DELETE FROM chat_sessions WHERE session_token=$1`, token)
	return err
}

func (p *pgStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.dbPool.Exec(ctx, `DELETE FROM chat_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
