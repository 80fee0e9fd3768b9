// pkg/tenants/seed.go
package tenants

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedEntry is one organization in a TENANT_SEED_FILE.
type SeedEntry struct {
	ID                string   `yaml:"id"`
	SecurityLevel     string   `yaml:"security_level"`
	AllowedDomains    []string `yaml:"allowed_domains"`
	JWTSecret         string   `yaml:"jwt_secret"`
	SessionDurationMs int64    `yaml:"session_duration_ms"`
}

// SeedFromFile ingests initial organizations from a YAML file. Missing file
// is not an error when the path is empty.
func SeedFromFile(ctx context.Context, prov Provider, path string, log *zap.SugaredLogger) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []SeedEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		level := SecurityLevel(e.SecurityLevel)
		if !level.Valid() {
			level = SecurityLevelBasic
		}
		cfg := SecurityConfig{
			SecurityLevel:    level,
			AllowedDomains:   e.AllowedDomains,
			JWTSigningSecret: e.JWTSecret,
			SessionDuration:  time.Duration(e.SessionDurationMs) * time.Millisecond,
		}
		if err := prov.UpsertSecurityConfig(ctx, e.ID, cfg); err != nil {
			log.Warnw("seed organization", "org", e.ID, "err", err)
			continue
		}
	}
	log.Infow("organization seed applied", "count", len(entries), "file", path)
	return nil
}
