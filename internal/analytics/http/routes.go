package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/pulse/internal/platform/httpx"
)

// MountRoutes registers the analytics query endpoints onto the router. The
// router is expected to be mounted under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	queryLimiter := httprate.Limit(h.rate, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(limitExceeded),
	)
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(limitExceeded),
	)

	r.With(queryLimiter).Get("/analytics", h.handleQuery)
	r.With(exportLimiter).Get("/analytics/export.csv", h.handleCSV)
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusTooManyRequests, httpx.ErrorBody{Error: http.StatusText(http.StatusTooManyRequests)})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
