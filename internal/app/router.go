package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/odyssey-erp/pulse/internal/analytics/http"
	"github.com/odyssey-erp/pulse/internal/auth"
	dashboardhttp "github.com/odyssey-erp/pulse/internal/dashboard/http"
	"github.com/odyssey-erp/pulse/internal/dashboard/ui"
	"github.com/odyssey-erp/pulse/internal/observability"
	"github.com/odyssey-erp/pulse/internal/platform/httpx"
	"github.com/odyssey-erp/pulse/internal/view"
	"github.com/odyssey-erp/pulse/jobs"
	"github.com/odyssey-erp/pulse/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AnalyticsHandler *analytichttp.Handler
	AuthHandler      *auth.Handler
	DashboardHandler *dashboardhttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	Templates        *view.Engine
}

// NewRouter constructs the chi.Router with Pulse defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ui.DashboardPath, http.StatusFound)
	})

	if params.Templates != nil {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			data := view.TemplateData{Title: "Not Found", Data: "The page you requested does not exist."}
			if err := params.Templates.RenderStatus(w, http.StatusNotFound, "pages/error.html", data); err != nil {
				params.Logger.Error("render not found", slog.Any("error", err))
				http.NotFound(w, r)
			}
		})
	}

	r.Route("/api", func(r chi.Router) {
		if params.AnalyticsHandler != nil {
			params.AnalyticsHandler.MountRoutes(r)
		}
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
	})
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
