package credentials

import (
	"context"
	"errors"
	"sync"
	"time"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/sentinel"
)

// IdentityFinder is the slice of the identity store the verifier needs.
type IdentityFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
}

// Verifier checks Basic credentials against stored identities. It has no side
// effects.
type Verifier struct {
	identities IdentityFinder
	hasher     Hasher
	metrics    *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Verifier)

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

func NewVerifier(identities IdentityFinder, hasher Hasher, opts ...Option) *Verifier {
	v := &Verifier{identities: identities, hasher: hasher}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify returns the identity named by a valid Basic header. Unknown email and
// wrong password fail identically, and both pay for one hash comparison.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*models.Identity, error) {
	email, password, err := ParseBasic(authorization)
	if err != nil {
		return nil, err
	}

	identity, err := v.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			v.compare(v.dummy(), password)
			return nil, unauthorized()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}

	if err := v.compare(identity.PasswordHash, password); err != nil {
		if errors.Is(err, ErrMismatch) {
			return nil, unauthorized()
		}
		// A corrupt stored hash is indistinguishable from a bad password to the caller.
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "Unauthorized")
	}
	return identity, nil
}

func (v *Verifier) compare(hash, password string) error {
	if v.metrics != nil {
		defer v.metrics.ObserveHash(time.Now())
	}
	return v.hasher.Compare(hash, password)
}

// dummy lazily hashes a throwaway password with the configured hasher so the
// unknown-email path costs the same as a real comparison.
func (v *Verifier) dummy() string {
	v.dummyOnce.Do(func() {
		hash, err := v.hasher.Hash("sessiongate-timing-equalizer")
		if err == nil {
			v.dummyHash = hash
		}
	})
	return v.dummyHash
}

func unauthorized() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
}
