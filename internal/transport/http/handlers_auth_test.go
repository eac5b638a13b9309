package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authModel "sessiongate/internal/auth/models"
	"sessiongate/internal/transport/http/mocks"
	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/testutil"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/mocks.go -package=mocks AuthService
type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) TestHandler_Register() {
	validRequest := &authModel.RegisterRequest{Email: "a@x.com", Password: "pw123"}

	s.T().Run("identity is created - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), validRequest).
			Return(&authModel.IdentityResult{ID: "id-1", Email: "a@x.com"}, nil)

		rr := s.do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/users", validRequest))

		require.Equal(t, http.StatusCreated, rr.Code)
		var got authModel.IdentityResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, "a@x.com", got.Email)
		assert.NotContains(t, rr.Body.String(), "password")
	})

	s.T().Run("returns 400 when request body is invalid json", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		rr := s.do(t, router, testutil.NewRequestWithBody(t, http.MethodPost, "/users", "{bad-json"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		errBody := s.errorBody(t, rr)
		assert.Equal(t, string(dErrors.CodeBadRequest), errBody["error"])
		assert.Equal(t, "Invalid JSON body", errBody["error_description"])
	})

	s.T().Run("returns 400 with Missing email", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "Missing email"))

		rr := s.do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/users", map[string]string{"password": "pw"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Missing email", s.errorBody(t, rr)["error_description"])
	})

	s.T().Run("returns 400 Already exist when email is taken", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), validRequest).
			Return(nil, dErrors.New(dErrors.CodeConflict, "Already exist"))

		rr := s.do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/users", validRequest))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		errBody := s.errorBody(t, rr)
		assert.Equal(t, string(dErrors.CodeConflict), errBody["error"])
		assert.Equal(t, "Already exist", errBody["error_description"])
	})

	s.T().Run("returns 503 when identity store is down", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), validRequest).
			Return(nil, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "identity store unavailable"))

		rr := s.do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/users", validRequest))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, string(dErrors.CodeUnavailable), s.errorBody(t, rr)["error"])
	})

	s.T().Run("returns 500 without leaking internal detail", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), validRequest).
			Return(nil, errors.New("bcrypt exploded"))

		rr := s.do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/users", validRequest))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "bcrypt")
	})
}

func (s *AuthHandlerSuite) TestHandler_Connect() {
	s.T().Run("valid credentials return a token - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		header := testutil.BasicAuthHeader("a@x.com:pw123")
		mockService.EXPECT().Connect(gomock.Any(), header).
			Return(&authModel.TokenResult{Token: "tok-1"}, nil)

		req := testutil.NewRequest(t, http.MethodGet, "/connect")
		req.Header.Set("Authorization", header)
		rr := s.do(t, router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got authModel.TokenResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "tok-1", got.Token)
	})

	s.T().Run("missing header is passed through and rejected - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Connect(gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeMalformed, "Malformed authorization header"))

		rr := s.do(t, router, testutil.NewRequest(t, http.MethodGet, "/connect"))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, string(dErrors.CodeMalformed), s.errorBody(t, rr)["error"])
	})

	s.T().Run("wrong password - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Connect(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))

		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), "a@x.com", "nope")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Unauthorized", s.errorBody(t, rr)["error_description"])
	})

	s.T().Run("session store down - 503", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Connect(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "session store unavailable"))

		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), "a@x.com", "pw123")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func (s *AuthHandlerSuite) TestHandler_Disconnect() {
	s.T().Run("live token is revoked - 204", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Disconnect(gomock.Any(), "tok-1").Return(nil)

		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/disconnect"), "tok-1")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	s.T().Run("unknown token - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Disconnect(gomock.Any(), "stale").
			Return(dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))

		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/disconnect"), "stale")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	s.T().Run("Basic credentials are not used for logout", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Disconnect(gomock.Any(), "").
			Return(dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))

		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/disconnect"), "a@x.com", "pw123")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func (s *AuthHandlerSuite) TestHandler_Me() {
	s.T().Run("token resolves to the identity - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().AuthenticateHeaders(gomock.Any(), "", "tok-1").Return(id.IdentityID("id-1"), nil)
		mockService.EXPECT().Me(gomock.Any(), id.IdentityID("id-1")).
			Return(&authModel.IdentityResult{ID: "id-1", Email: "a@x.com"}, nil)

		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/users/me"), "tok-1")
		rr := s.do(t, router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got authModel.IdentityResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "a@x.com", got.Email)
	})

	s.T().Run("Basic credentials are accepted - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		header := testutil.BasicAuthHeader("a@x.com:pw123")
		mockService.EXPECT().AuthenticateHeaders(gomock.Any(), header, "").Return(id.IdentityID("id-1"), nil)
		mockService.EXPECT().Me(gomock.Any(), id.IdentityID("id-1")).
			Return(&authModel.IdentityResult{ID: "id-1", Email: "a@x.com"}, nil)

		req := testutil.NewRequest(t, http.MethodGet, "/users/me")
		req.Header.Set("Authorization", header)
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	s.T().Run("no credentials - 401 and Me is never called", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().AuthenticateHeaders(gomock.Any(), "", "").
			Return(id.IdentityID(""), dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		mockService.EXPECT().Me(gomock.Any(), gomock.Any()).Times(0)

		rr := s.do(t, router, testutil.NewRequest(t, http.MethodGet, "/users/me"))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	s.T().Run("identity deleted after login - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().AuthenticateHeaders(gomock.Any(), gomock.Any(), gomock.Any()).Return(id.IdentityID("id-1"), nil)
		mockService.EXPECT().Me(gomock.Any(), id.IdentityID("id-1")).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))

		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/users/me"), "tok-1")
		rr := s.do(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func (s *AuthHandlerSuite) newHandler(t *testing.T) (*mocks.MockAuthService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockAuthService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	NewAuthHandler(mockService, logger).Register(router)
	return mockService, router
}

func (s *AuthHandlerSuite) do(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func (s *AuthHandlerSuite) errorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(strings.NewReader(rr.Body.String())).Decode(&body))
	return body
}
