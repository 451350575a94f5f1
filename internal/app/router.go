package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane/stocklane/internal/analytics"
	"github.com/stocklane/stocklane/internal/auth"
	"github.com/stocklane/stocklane/internal/catalog"
	"github.com/stocklane/stocklane/internal/dashboard"
	"github.com/stocklane/stocklane/internal/ledger"
	"github.com/stocklane/stocklane/internal/platform/httpx"
	"github.com/stocklane/stocklane/internal/report"
	"github.com/stocklane/stocklane/jobs"
)

// RouterParams collects every handler the router mounts.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	LedgerHandler    *ledger.Handler
	DashboardHandler *dashboard.Handler
	AnalyticsHandler *analytics.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
}

// NewRouter assembles the HTTP surface. Everything under /api except
// registration requires a bearer token.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if p.AuthHandler != nil {
			p.AuthHandler.RegisterPublicRoutes(r)
		}

		r.Group(func(r chi.Router) {
			if p.AuthService != nil {
				r.Use(p.AuthService.Middleware)
			}
			if p.AuthHandler != nil {
				p.AuthHandler.RegisterRoutes(r)
			}
			if p.CatalogHandler != nil {
				p.CatalogHandler.RegisterRoutes(r)
			}
			if p.LedgerHandler != nil {
				p.LedgerHandler.RegisterRoutes(r)
			}
			if p.DashboardHandler != nil {
				p.DashboardHandler.RegisterRoutes(r)
			}
			if p.AnalyticsHandler != nil {
				p.AnalyticsHandler.RegisterRoutes(r)
			}
			if p.ReportHandler != nil {
				p.ReportHandler.RegisterRoutes(r)
			}
			if p.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					p.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}
