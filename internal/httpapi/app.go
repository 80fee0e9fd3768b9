package httpapi

import (
	"go.uber.org/zap"

	"chatguard/internal/widget"
)

// Config holds the HTTP surface configuration.
type Config struct {
	AdminAPIToken string
	CORSOrigins   []string
}

// App is the HTTP application container. Handlers and middleware are
// methods on this type; shared deps and config only, request-scoped work
// uses context.
type App struct {
	log *zap.SugaredLogger
	svc *widget.Service
	cfg Config
}

func New(log *zap.SugaredLogger, svc *widget.Service, cfg Config) *App {
	return &App{log: log, svc: svc, cfg: cfg}
}
