package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	authModel "sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	"sessiongate/internal/platform/middleware"
	"sessiongate/internal/transport/http/mocks"
	dErrors "sessiongate/pkg/domain-errors"
)

func newTestRouter(t *testing.T, exposeMetrics bool) (*mocks.MockStatusReporter, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reporter := mocks.NewMockStatusReporter(ctrl)
	router := NewRouter(
		NewAuthHandler(mocks.NewMockAuthService(ctrl), logger),
		NewStatusHandler(reporter, logger),
		logger,
		metrics.NewWithRegistry(prometheus.NewRegistry()),
		exposeMetrics,
	)
	return reporter, router
}

func TestRouter(t *testing.T) {
	t.Run("unknown route returns JSON 404", func(t *testing.T) {
		_, router := newTestRouter(t, false)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/files", nil))

		require.Equal(t, http.StatusNotFound, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, string(dErrors.CodeNotFound), body["error"])
	})

	t.Run("wrong method returns 405", func(t *testing.T) {
		_, router := newTestRouter(t, false)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/status", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("request id is echoed back", func(t *testing.T) {
		reporter, router := newTestRouter(t, false)
		reporter.EXPECT().Status(gomock.Any()).Return(authModel.Status{})

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set(middleware.HeaderRequestID, "req-123")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, "req-123", rr.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("metrics endpoint is hidden unless enabled", func(t *testing.T) {
		_, router := newTestRouter(t, false)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("metrics endpoint is served when enabled", func(t *testing.T) {
		_, router := newTestRouter(t, true)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
