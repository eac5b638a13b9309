package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"sessiongate/internal/platform/config"
)

// New builds the HTTP server. Connection-level errors (TLS handshakes, broken
// clients) go to the structured logger instead of the default stderr logger.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    16 << 10,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
