// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgProvider implements Provider backed by PostgreSQL.
type pgProvider struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresProvider constructs a PostgreSQL-backed organization provider.
func NewPostgresProvider(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Provider {
	return &pgProvider{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist plus new
// security columns. Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS organizations (
  id text PRIMARY KEY,
  name text,
  chat_security_level text NOT NULL DEFAULT 'basic',
  chat_allowed_domains jsonb NOT NULL DEFAULT '[]'::jsonb,
  chat_jwt_secret text,
  chat_session_duration_ms bigint NOT NULL DEFAULT 900000,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS chat_sessions (
  id uuid PRIMARY KEY,
  organization_id text NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
  session_token text UNIQUE NOT NULL,
  user_identifier text,
  domain text,
  expires_at timestamptz NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS chat_sessions_expires_at_idx ON chat_sessions(expires_at);
-- Backfill / ensure security columns exist (for upgrades)
ALTER TABLE organizations ADD COLUMN IF NOT EXISTS chat_security_level text NOT NULL DEFAULT 'basic';
ALTER TABLE organizations ADD COLUMN IF NOT EXISTS chat_allowed_domains jsonb NOT NULL DEFAULT '[]'::jsonb;
ALTER TABLE organizations ADD COLUMN IF NOT EXISTS chat_jwt_secret text;
ALTER TABLE organizations ADD COLUMN IF NOT EXISTS chat_session_duration_ms bigint NOT NULL DEFAULT 900000;
ALTER TABLE organizations ADD COLUMN IF NOT EXISTS updated_at timestamptz NOT NULL DEFAULT NOW();
`)
	return err
}

func (p *pgProvider) GetSecurityConfig(ctx context.Context, orgID string) (SecurityConfig, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT COALESCE(chat_security_level,'basic'), chat_allowed_domains, COALESCE(chat_jwt_secret,''), COALESCE(chat_session_duration_ms,900000) FROM organizations WHERE id=$1`, orgID)
	var (
		level       string
		domainsJSON []byte
		secret      string
		durationMs  int64
	)
	if err := row.Scan(&level, &domainsJSON, &secret, &durationMs); err != nil {
		if err == pgx.ErrNoRows {
			return SecurityConfig{}, ErrNotFound
		}
		return SecurityConfig{}, err
	}
	cfg := SecurityConfig{
		SecurityLevel:    SecurityLevel(level),
		JWTSigningSecret: secret,
		SessionDuration:  time.Duration(durationMs) * time.Millisecond,
	}
	if !cfg.SecurityLevel.Valid() {
		cfg.SecurityLevel = SecurityLevelBasic
	}
	if len(domainsJSON) > 0 {
		_ = json.Unmarshal(domainsJSON, &cfg.AllowedDomains)
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	return cfg, nil
}

func (p *pgProvider) UpdateSecurityLevel(ctx context.Context, orgID string, level SecurityLevel) error {
	tag, err := p.dbPool.Exec(ctx, `UPDATE organizations SET chat_security_level=$2, updated_at=NOW() WHERE id=$1`, orgID, string(level))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgProvider) UpdateAllowedDomains(ctx context.Context, orgID string, domains []string) error {
	if domains == nil {
		domains = []string{}
	}
	b, _ := json.Marshal(domains)
	tag, err := p.dbPool.Exec(ctx, `UPDATE organizations SET chat_allowed_domains=$2, updated_at=NOW() WHERE id=$1`, orgID, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgProvider) UpdateJWTSecret(ctx context.Context, orgID, secret string) error {
	tag, err := p.dbPool.Exec(ctx, `UPDATE organizations SET chat_jwt_secret=$2, updated_at=NOW() WHERE id=$1`, orgID, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgProvider) UpsertSecurityConfig(ctx context.Context, orgID string, cfg SecurityConfig) error {
	domains := cfg.AllowedDomains
	if domains == nil {
		domains = []string{}
	}
	b, _ := json.Marshal(domains)
	dur := cfg.SessionDuration
	if dur <= 0 {
		dur = DefaultSessionDuration
	}
	_, err := p.dbPool.Exec(ctx, `INSERT INTO organizations(id, chat_security_level, chat_allowed_domains, chat_jwt_secret, chat_session_duration_ms)
	  VALUES ($1,$2,$3,NULLIF($4,''),$5)
	  ON CONFLICT (id) DO UPDATE SET chat_security_level=EXCLUDED.chat_security_level, chat_allowed_domains=EXCLUDED.chat_allowed_domains, chat_jwt_secret=EXCLUDED.chat_jwt_secret, chat_session_duration_ms=EXCLUDED.chat_session_duration_ms, updated_at=NOW()`,
		orgID, string(cfg.SecurityLevel), b, cfg.JWTSigningSecret, dur.Milliseconds())
	return err
}
