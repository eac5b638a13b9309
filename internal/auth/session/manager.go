// Package session issues, resolves and revokes opaque session tokens. A token
// maps to an identity id in a key-value store under a fixed TTL that is never
// extended on use.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/config"
	"sessiongate/internal/platform/metrics"
	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
)

// KeyPrefix namespaces session keys in the shared key-value store.
const KeyPrefix = "auth_"

// Store is the key-value contract session state lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	IsAlive(ctx context.Context) bool
}

type Manager struct {
	store    Store
	ttl      time.Duration
	newToken func() string
	metrics  *metrics.Metrics
}

type Option func(*Manager)

// WithTTL overrides the session lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithTokenGenerator replaces the random token source, for tests.
func WithTokenGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newToken = fn
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		ttl:      config.DefaultSessionTTL,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL is the fixed lifetime applied to every new session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Key returns the store key for token.
func Key(token string) string {
	return KeyPrefix + token
}

// CreateSession issues a fresh token bound to identity.
func (m *Manager) CreateSession(ctx context.Context, identity *models.Identity) (string, error) {
	if identity == nil || identity.ID.IsNil() {
		return "", dErrors.New(dErrors.CodeInternal, "session requires an identity")
	}

	token := m.newToken()
	if err := m.store.Set(ctx, Key(token), identity.ID.String(), m.ttl); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if m.metrics != nil {
		m.metrics.IncrementSessionsCreated()
	}
	return token, nil
}

// ResolveSession returns the identity bound to token. An empty, unknown or
// expired token reports ok=false with no error; store failures are errors and
// never reported as absence.
func (m *Manager) ResolveSession(ctx context.Context, token string) (identityID id.IdentityID, ok bool, err error) {
	if token == "" {
		return "", false, nil
	}
	if m.metrics != nil {
		defer m.metrics.ObserveResolveSession(time.Now())
	}

	value, found, err := m.store.Get(ctx, Key(token))
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if !found || value == "" {
		return "", false, nil
	}
	return id.IdentityID(value), true, nil
}

// RevokeSession deletes token. Revoking an absent token is not an error.
func (m *Manager) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Del(ctx, Key(token)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	if m.metrics != nil {
		m.metrics.IncrementSessionsRevoked()
	}
	return nil
}
