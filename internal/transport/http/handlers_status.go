package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModel "sessiongate/internal/auth/models"
	"sessiongate/internal/platform/middleware"
	"sessiongate/pkg/platform/httputil"
)

type StatusReporter interface {
	Status(ctx context.Context) authModel.Status
	Stats(ctx context.Context) (authModel.Stats, error)
}

// StatusHandler serves liveness and usage counts.
type StatusHandler struct {
	reporter StatusReporter
	logger   *slog.Logger
}

func NewStatusHandler(reporter StatusReporter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{reporter: reporter, logger: logger}
}

func (h *StatusHandler) Register(r chi.Router) {
	r.Get("/status", h.handleStatus)
	r.Get("/stats", h.handleStats)
}

// handleStatus always answers 200; a down store shows as false.
func (h *StatusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.reporter.Status(r.Context()))
}

func (h *StatusHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.reporter.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
