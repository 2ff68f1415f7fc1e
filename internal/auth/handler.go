package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/pulse/internal/platform/httpx"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// Handler wires HTTP endpoints for the token flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes on the provided router, expected to be
// mounted under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Post("/verify", h.handleVerify)
		r.Post("/password-reset-request", h.handleResetRequest)
		r.Post("/password-reset-confirm", h.handleResetConfirm)
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	serve(h, w, r, &req, func(ctx context.Context) (Response, error) {
		return h.service.Verify(ctx, req)
	})
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	serve(h, w, r, &req, func(ctx context.Context) (Response, error) {
		return h.service.RequestReset(ctx, req)
	})
}

func (h *Handler) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	serve(h, w, r, &req, func(ctx context.Context) (Response, error) {
		return h.service.ConfirmReset(ctx, req)
	})
}

func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, req *T, call func(context.Context) (Response, error)) {
	if err := httpx.DecodeJSON(r, req); err != nil {
		h.logger.Warn("decode auth request", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, Response{Message: MsgUnexpected})
		return
	}
	resp, err := call(r.Context())
	if err != nil {
		e := shared.AsError(err)
		status := e.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("auth request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.JSON(w, status, Response{Message: e.Message})
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
