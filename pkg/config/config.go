// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Admin surface
	AdminAPIToken string
	CORSOrigins   string // comma-separated exact origins, or "*"

	// Postgres & Redis (both optional; in-memory fallbacks for dev)
	DatabaseURL string
	RedisURL    string

	// Dev bring-up: YAML file with initial organizations
	TenantSeedFile string

	// Expired-session sweep cadence
	SessionSweepInterval time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                  env("CHATGUARD_ENV", "dev"),
		HTTPAddr:             env("HTTP_ADDR", ":8080"),
		AdminAPIToken:        env("ADMIN_API_TOKEN", ""),
		CORSOrigins:          env("CORS_ORIGINS", ""),
		DatabaseURL:          env("DATABASE_URL", ""),
		RedisURL:             env("REDIS_URL", ""),
		TenantSeedFile:       env("TENANT_SEED_FILE", ""),
		SessionSweepInterval: envDur("SESSION_SWEEP_INTERVAL_MIN", 15) * time.Minute,
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory organization provider for dev")
	}
	if cfg.AdminAPIToken == "" && cfg.Env != "dev" {
		log.Println("[WARN] ADMIN_API_TOKEN not set — admin endpoints disabled")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i)
		}
		log.Printf("[WARN] %s=%q is not a positive integer, using default %d", k, v, def)
	}
	return time.Duration(def)
}
