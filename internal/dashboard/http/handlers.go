package dashboardhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/analytics/svg"
	"github.com/odyssey-erp/pulse/internal/dashboard"
	"github.com/odyssey-erp/pulse/internal/dashboard/ui"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/view"
)

const (
	defaultRenderBudget = 3 * time.Second
	refreshSeconds      = 2
)

// Config tunes the dashboard handler.
type Config struct {
	// RenderBudget caps how long a page request waits for the query to settle
	// before the loading skeleton is served.
	RenderBudget time.Duration
	FetchTimeout time.Duration
	Observer     dashboard.Observer
}

// Handler serves the server-rendered analytics dashboard.
type Handler struct {
	logger    *slog.Logger
	fetcher   analytics.Provider
	templates *view.Engine
	cfg       Config
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, fetcher analytics.Provider, templates *view.Engine, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RenderBudget <= 0 {
		cfg.RenderBudget = defaultRenderBudget
	}
	return &Handler{logger: logger, fetcher: fetcher, templates: templates, cfg: cfg}
}

// MountRoutes registers the dashboard pages.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/dashboard/filter", h.handleFilter)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.RawQuery
	set := filters.Decode(raw)
	if !filters.IsCanonical(raw) {
		http.Redirect(w, r, ui.Href(set), http.StatusFound)
		return
	}

	v := dashboard.NewView(h.fetcher,
		dashboard.WithLogger(h.logger),
		dashboard.WithTimeout(h.cfg.FetchTimeout),
		dashboard.WithObserver(h.cfg.Observer),
	)
	defer v.Close()
	v.Mount(set)

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RenderBudget)
	defer cancel()
	out, err := v.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		// client went away
		return
	}

	vm, err := ui.Build(out, svg.Trend)
	if err != nil {
		h.handleServerError(w, "build view model", err)
		return
	}

	data := view.TemplateData{
		Title:       "Analytics Dashboard",
		CurrentPath: ui.Href(set),
		Data:        vm,
	}
	if vm.Loading {
		data.RefreshAfter = refreshSeconds
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

// handleFilter applies a single-field change and redirects to the canonical
// dashboard URL. The remaining query keys carry the current selection.
func (h *Handler) handleFilter(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	field := query.Get("field")
	value := query.Get("value")
	query.Del("field")
	query.Del("value")

	next := filters.FromValues(query).With(field, value)
	http.Redirect(w, r, ui.Href(next), http.StatusFound)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
	data := view.TemplateData{Title: "Something went wrong", Data: "The dashboard could not be rendered."}
	if h.templates == nil || h.templates.RenderStatus(w, http.StatusInternalServerError, "pages/error.html", data) != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
