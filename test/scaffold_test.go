package test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"sessiongate/internal/auth/credentials"
	"sessiongate/internal/auth/service"
	"sessiongate/internal/auth/session"
	"sessiongate/internal/auth/store/identity"
	"sessiongate/internal/auth/store/kv"
	"sessiongate/internal/platform/metrics"
	"sessiongate/internal/status"
	httptransport "sessiongate/internal/transport/http"
	"sessiongate/pkg/testutil"
)

func newRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identities := identity.NewInMemory()
	sessions := kv.NewInMemory()
	hasher := credentials.NewBcryptHasher(4)
	svc := service.New(identities, credentials.NewVerifier(identities, hasher), session.NewManager(sessions), hasher)
	return httptransport.NewRouter(
		httptransport.NewAuthHandler(svc, logger),
		httptransport.NewStatusHandler(status.New(sessions, identities), logger),
		logger,
		metrics.NewWithRegistry(prometheus.NewRegistry()),
		true,
	)
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router over in-memory backends", func(t *testing.T) {
		router := newRouter()

		for _, path := range []string{"/status", "/stats", "/metrics"} {
			testutil.When(t, "calling GET "+path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

				testutil.Then(t, "it should respond with ok", func(t *testing.T) {
					if rec.Code != http.StatusOK {
						t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
					}
				})
			})
		}

		testutil.When(t, "calling GET /users/me without credentials", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

			testutil.Then(t, "it should respond with unauthorized", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})
	})
}
