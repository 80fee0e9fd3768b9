package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer)
	r.Use(tracing())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "service": "chat-widget"}, http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/chat", func(cr chi.Router) {
		cr.Use(cors(a.cfg.CORSOrigins))
		cr.Post("/init", a.initChatWidget)
		cr.Post("/sessions/validate", a.validateSession)
		cr.Post("/jwt/validate", a.validateJWT)
		cr.Get("/organizations/{orgID}/config", a.getConfig)
		cr.Get("/organizations/{orgID}/jwt-docs", a.getJWTDocs)
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(cors(a.cfg.CORSOrigins))
		ar.Use(a.adminAuth)
		ar.Put("/organizations/{orgID}/security-level", a.putSecurityLevel)
		ar.Post("/organizations/{orgID}/domains", a.addDomain)
		ar.Delete("/organizations/{orgID}/domains", a.removeDomain)
		ar.Post("/organizations/{orgID}/secret", a.rotateSecret)
		ar.Post("/organizations/{orgID}/sample-jwt", a.createSampleJWT)
		ar.Post("/cleanup", a.cleanup)
	})

	return r
}
