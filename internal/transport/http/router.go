package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiongate/internal/platform/metrics"
	"sessiongate/internal/platform/middleware"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/httputil"
)

// NewRouter wires all public endpoints behind the shared middleware chain.
// /metrics is served when exposeMetrics is set.
func NewRouter(auth *AuthHandler, status *StatusHandler, logger *slog.Logger, m *metrics.Metrics, exposeMetrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger, m))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":             "method_not_allowed",
			"error_description": "Method not allowed",
		})
	})

	status.Register(r)
	auth.Register(r)

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}
