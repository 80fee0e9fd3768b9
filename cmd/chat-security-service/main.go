package main

import (
	"context"
	"net/http"
	"time"

	"chatguard/internal/audit"
	"chatguard/internal/httpapi"
	"chatguard/internal/security"
	"chatguard/internal/session"
	"chatguard/internal/widget"
	"chatguard/pkg/config"
	pdb "chatguard/pkg/db"
	"chatguard/pkg/logger"
	"chatguard/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	ctx := context.Background()

	pool := pdb.MustConnect(cfg, log)
	rdb := pdb.MustRedis(cfg, log)

	var (
		prov  tenants.Provider
		store session.Store
	)
	if pool != nil {
		if err := tenants.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("ensure schema", "err", err)
		}
		prov = tenants.NewPostgresProvider(pool, log)
		store = session.NewPostgresStore(pool)
	} else {
		prov = tenants.NewMemoryProvider(log)
		store = session.NewMemoryStore()
	}
	if err := tenants.SeedFromFile(ctx, prov, cfg.TenantSeedFile, log); err != nil {
		log.Warnw("organization seed failed", "err", err)
	}

	var replay security.ReplayStore
	if rdb != nil {
		replay = security.NewRedisReplayStore(rdb)
	} else {
		replay = security.NewMemoryReplayStore()
	}

	limiter := security.NewLimiter()
	go limiter.RunJanitor(ctx, time.Minute)

	sink := audit.NewSink(log)
	defer sink.Close()

	svc := widget.NewService(log, prov, session.NewManager(store), security.NewJWTValidator(replay), limiter, sink)

	// Periodic expired-session sweep
	go func() {
		t := time.NewTicker(cfg.SessionSweepInterval)
		defer t.Stop()
		for range t.C {
			if _, err := svc.Cleanup(ctx); err != nil {
				log.Errorw("session sweep", "err", err)
			}
		}
	}()

	app := httpapi.New(log, svc, httpapi.Config{
		AdminAPIToken: cfg.AdminAPIToken,
		CORSOrigins:   httpapi.SplitOrigins(cfg.CORSOrigins),
	})

	log.Infof("chat-security listening at %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, app.Handler()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
