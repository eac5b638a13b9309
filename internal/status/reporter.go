// Package status reports backing store liveness and usage counts.
package status

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	dErrors "sessiongate/pkg/domain-errors"
)

// Prober is anything with a liveness check.
type Prober interface {
	IsAlive(ctx context.Context) bool
}

// IdentityCounter counts registered identities.
type IdentityCounter interface {
	Count(ctx context.Context) (int64, error)
}

// IdentityBackend is the identity store seen by the reporter.
type IdentityBackend interface {
	Prober
	IdentityCounter
}

const defaultProbeTimeout = 2 * time.Second

type Reporter struct {
	sessions     Prober
	identities   Prober
	counter      IdentityCounter
	probeTimeout time.Duration
	metrics      *metrics.Metrics
}

type Option func(*Reporter)

func WithProbeTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// New builds a Reporter. identities is both probed and counted.
func New(sessions Prober, identities IdentityBackend, opts ...Option) *Reporter {
	r := &Reporter{
		sessions:     sessions,
		identities:   identities,
		counter:      identities,
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status probes both stores concurrently. A probe that does not answer within
// the probe timeout counts as down; Status itself never fails.
func (r *Reporter) Status(ctx context.Context) models.Status {
	var st models.Status

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st.Redis = r.probe(gctx, "redis", r.sessions)
		return nil
	})
	g.Go(func() error {
		st.DB = r.probe(gctx, "db", r.identities)
		return nil
	})
	_ = g.Wait()

	return st
}

func (r *Reporter) probe(ctx context.Context, name string, p Prober) bool {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	alive := make(chan bool, 1)
	go func() { alive <- p.IsAlive(ctx) }()

	var ok bool
	select {
	case ok = <-alive:
	case <-ctx.Done():
	}
	if !ok && r.metrics != nil {
		r.metrics.IncrementProbeFailure(name)
	}
	return ok
}

// Stats returns the identity count.
func (r *Reporter) Stats(ctx context.Context) (models.Stats, error) {
	n, err := r.counter.Count(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
	return models.Stats{Users: n}, nil
}
