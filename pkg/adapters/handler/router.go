package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urlzip/urlzip/pkg/config"
	"github.com/urlzip/urlzip/pkg/metrics"
	"github.com/urlzip/urlzip/pkg/ports"
)

// Services groups what the router dispatches to
type Services struct {
	Links     ports.LinkService
	Analytics ports.AnalyticsService
	Reports   ports.ReportService
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, logger *slog.Logger, svc Services) http.Handler {
	// Initialize Handlers
	h := NewHTTPHandler(svc.Links, logger, cfg.FrontendURL)
	ah := NewAnalyticsHandler(svc.Analytics, logger)
	rh := NewReportHandler(svc.Reports, logger)
	authHandler := NewAuthHandler(cfg, logger)

	mw := NewMiddleware(cfg, logger)

	mux := http.NewServeMux()

	// Operational
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Public API
	mux.HandleFunc("POST /api/shorten-url", h.Create)
	mux.HandleFunc("GET /api/redirect/{short_code}", h.RedirectJSON)
	mux.HandleFunc("POST /api/analytics", ah.Handle)
	mux.HandleFunc("POST /api/reports", rh.Submit)

	// Owner API
	mux.Handle("GET /api/v1/links", mw.RequireOwner(http.HandlerFunc(h.List)))

	// Auth
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Short links
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if cfg.FrontendURL != "" && cfg.FrontendURL != cfg.BaseURL {
			http.Redirect(w, r, cfg.FrontendURL, http.StatusTemporaryRedirect)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "urlzip"})
	})
	mux.HandleFunc("GET /{short_code}", h.Redirect)

	// metrics.Middleware must wrap the mux directly to observe r.Pattern.
	return mw.RequestLog(mw.CORS(mw.Owner(metrics.Middleware(mux))))
}
