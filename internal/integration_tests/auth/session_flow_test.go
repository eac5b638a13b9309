package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sessiongate/internal/auth/credentials"
	"sessiongate/internal/auth/models"
	"sessiongate/internal/auth/service"
	"sessiongate/internal/auth/session"
	"sessiongate/internal/auth/store/identity"
	"sessiongate/internal/auth/store/kv"
	"sessiongate/internal/platform/metrics"
	"sessiongate/internal/status"
	httptransport "sessiongate/internal/transport/http"
	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/audit"
	auditpublisher "sessiongate/pkg/platform/audit/publisher"
	auditmemory "sessiongate/pkg/platform/audit/store/memory"
	"sessiongate/pkg/testutil"
)

type harness struct {
	router     http.Handler
	sessions   *kv.InMemoryStore
	auditStore *auditmemory.InMemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	identities := identity.NewInMemory()
	sessionStore := kv.NewInMemory()
	auditStore := auditmemory.NewInMemoryStore()

	hasher := credentials.NewBcryptHasher(bcrypt.MinCost)
	svc := service.New(
		identities,
		credentials.NewVerifier(identities, hasher),
		session.NewManager(sessionStore, session.WithMetrics(m)),
		hasher,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditpublisher.NewPublisher(auditStore)),
	)

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(svc, logger),
		httptransport.NewStatusHandler(status.New(sessionStore, identities), logger),
		logger,
		m,
		false,
	)
	return &harness{router: router, sessions: sessionStore, auditStore: auditStore}
}

func (h *harness) register(t *testing.T, email, password string) *http.Response {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/users", models.RegisterRequest{Email: email, Password: password})
	return testutil.DoRequest(h.router, req).Result()
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	var identityID, token string

	testutil.Given(t, "a new identity a@x.com", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/users", models.RegisterRequest{Email: "a@x.com", Password: "pw123"})
		rr := testutil.DoRequest(h.router, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		created := testutil.UnmarshalResponse[models.IdentityResult](t, rr)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, "a@x.com", created.Email)
		identityID = created.ID
	})

	testutil.When(t, "registering the same email again", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/users", models.RegisterRequest{Email: "a@x.com", Password: "other"})
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "it is rejected with Already exist", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			errBody := testutil.UnmarshalErrorResponse(t, rr)
			assert.Equal(t, "Already exist", errBody["error_description"])
		})
	})

	testutil.When(t, "connecting with the right password", func(t *testing.T) {
		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), "a@x.com", "pw123")
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "a token is issued and stored under auth_<token>", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusOK)
			res := testutil.UnmarshalResponse[models.TokenResult](t, rr)
			require.NotEmpty(t, res.Token)
			token = res.Token
			assert.Equal(t, 1, h.sessions.Len())
		})
	})

	testutil.When(t, "asking who the token belongs to", func(t *testing.T) {
		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/users/me"), token)
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "the identity is returned without its password", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusOK)
			me := testutil.UnmarshalResponse[models.IdentityResult](t, rr)
			assert.Equal(t, identityID, me.ID)
			assert.Equal(t, "a@x.com", me.Email)
		})
	})

	testutil.When(t, "disconnecting", func(t *testing.T) {
		req := testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/disconnect"), token)
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "the session is gone", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusNoContent)
			assert.Equal(t, 0, h.sessions.Len())
		})
	})

	testutil.When(t, "reusing the revoked token", func(t *testing.T) {
		me := testutil.DoRequest(h.router, testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/users/me"), token))
		again := testutil.DoRequest(h.router, testutil.WithToken(testutil.NewRequest(t, http.MethodGet, "/disconnect"), token))

		testutil.Then(t, "both calls are unauthorized", func(t *testing.T) {
			testutil.AssertStatusAndError(t, me, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
			testutil.AssertStatusAndError(t, again, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
		})
	})

	testutil.And(t, "the lifecycle is in the audit trail", func(t *testing.T) {
		events, err := h.auditStore.ListByIdentity(t.Context(), id.IdentityID(identityID))
		require.NoError(t, err)

		var actions []string
		for _, e := range events {
			actions = append(actions, e.Action)
		}
		assert.Equal(t, []string{
			string(audit.EventIdentityRegistered),
			string(audit.EventSessionCreated),
			string(audit.EventSessionRevoked),
		}, actions)
	})
}

// Any pair accepted at registration must be usable for Basic login.
func TestRegisteredCredentialsCanConnect(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		registered bool
		reason     string
	}{
		{name: "password with colon", email: "colon-pw@x.com", password: "pw:123", reason: "Invalid password"},
		{name: "email with colon", email: "a:b@x.com", password: "pw123", reason: "Invalid email"},
		{name: "quoted email with colon", email: `"a:b"@x.com`, password: "pw123", reason: "Invalid email"},
		{name: "password with spaces and symbols", email: "sym@x.com", password: "p w!@#$%^&*()", registered: true},
		{name: "unicode password", email: "uni@x.com", password: "pässwörd✓", registered: true},
		{name: "password at bcrypt limit", email: "long@x.com", password: strings.Repeat("p", 72), registered: true},
	}

	for _, tt := range tests {
		testutil.Given(t, tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.register(t, tt.email, tt.password)
			defer res.Body.Close()

			if !tt.registered {
				testutil.Then(t, "registration is refused and nothing is stored", func(t *testing.T) {
					require.Equal(t, http.StatusBadRequest, res.StatusCode)
					var body map[string]string
					require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
					assert.Equal(t, tt.reason, body["error_description"])

					stats := testutil.DoRequest(h.router, testutil.NewRequest(t, http.MethodGet, "/stats"))
					assert.JSONEq(t, `{"users":0}`, stats.Body.String())
				})
				return
			}

			require.Equal(t, http.StatusCreated, res.StatusCode)
			testutil.When(t, "connecting with the same pair", func(t *testing.T) {
				req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), tt.email, tt.password)
				rr := testutil.DoRequest(h.router, req)

				testutil.Then(t, "a token is issued", func(t *testing.T) {
					testutil.AssertStatus(t, rr, http.StatusOK)
					assert.NotEmpty(t, testutil.UnmarshalResponse[models.TokenResult](t, rr).Token)
				})
			})
		})
	}
}

func TestConnectRejections(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "b@x.com", "secret")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	_ = res.Body.Close()

	testutil.When(t, "the email is unknown", func(t *testing.T) {
		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), "nobody@x.com", "secret")
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "it is unauthorized and no session exists", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
			assert.Equal(t, 0, h.sessions.Len())
		})
	})

	testutil.When(t, "the password is wrong", func(t *testing.T) {
		req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/connect"), "b@x.com", "nope")
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "it is unauthorized", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
		})
	})

	testutil.When(t, "the header is not base64", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/connect")
		req.Header.Set("Authorization", "Basic !!!")
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "it is malformed", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeMalformed))
		})
	})

	testutil.When(t, "the decoded pair has no colon", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/connect")
		req.Header.Set("Authorization", testutil.BasicAuthHeader("b@x.com"))
		rr := testutil.DoRequest(h.router, req)

		testutil.Then(t, "it is malformed", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeMalformed))
		})
	})
}

func TestMeWithBasicCredentials(t *testing.T) {
	h := newHarness(t)
	res := h.register(t, "c@x.com", "pw")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	_ = res.Body.Close()

	req := testutil.WithBasicAuth(testutil.NewRequest(t, http.MethodGet, "/users/me"), "c@x.com", "pw")
	rr := testutil.DoRequest(h.router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	me := testutil.UnmarshalResponse[models.IdentityResult](t, rr)
	assert.Equal(t, "c@x.com", me.Email)
	assert.Equal(t, 0, h.sessions.Len(), "Basic auth on /users/me must not create a session")
}

func TestStatusAndStats(t *testing.T) {
	h := newHarness(t)
	for _, email := range []string{"d@x.com", "e@x.com"} {
		res := h.register(t, email, "pw")
		require.Equal(t, http.StatusCreated, res.StatusCode)
		_ = res.Body.Close()
	}

	statusRR := testutil.DoRequest(h.router, testutil.NewRequest(t, http.MethodGet, "/status"))
	testutil.AssertStatus(t, statusRR, http.StatusOK)
	assert.JSONEq(t, `{"redis":true,"db":true}`, statusRR.Body.String())

	statsRR := testutil.DoRequest(h.router, testutil.NewRequest(t, http.MethodGet, "/stats"))
	testutil.AssertStatus(t, statsRR, http.StatusOK)
	assert.JSONEq(t, `{"users":2}`, statsRR.Body.String())
}
