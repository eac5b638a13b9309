package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes used as the "outcome" label on LoginsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeMalformed    = "malformed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersCreated     prometheus.Counter
	LoginsTotal      *prometheus.CounterVec
	SessionsCreated  prometheus.Counter
	SessionsRevoked  prometheus.Counter
	ResolveDuration  prometheus.Histogram
	HashDuration     prometheus.Histogram
	StoreOpDuration  *prometheus.HistogramVec
	HTTPDuration     *prometheus.HistogramVec
	AuditEventsDrop  prometheus.Counter
	StatusProbeFails *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "sessiongate_identities_registered_total",
			Help: "Total number of identities registered",
		}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_logins_total",
			Help: "Credential checks on /connect by outcome",
		}, []string{"outcome"}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "sessiongate_sessions_created_total",
			Help: "Total number of session tokens issued",
		}),
		SessionsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "sessiongate_sessions_revoked_total",
			Help: "Total number of session tokens revoked",
		}),
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiongate_resolve_session_duration_seconds",
			Help:    "Duration of token to identity resolution (authenticated request critical path)",
			Buckets: durationBuckets,
		}),
		HashDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiongate_password_hash_duration_seconds",
			Help:    "Duration of password hashing and verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessiongate_store_operation_duration_seconds",
			Help:    "Duration of backing store operations",
			Buckets: durationBuckets,
		}, []string{"store", "op"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessiongate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status"}),
		AuditEventsDrop: f.NewCounter(prometheus.CounterOpts{
			Name: "sessiongate_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full or the store failed",
		}),
		StatusProbeFails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_status_probe_failures_total",
			Help: "Failed liveness probes by store",
		}, []string{"store"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementSessionsRevoked() {
	m.SessionsRevoked.Inc()
}

func (m *Metrics) IncrementAuditDropped() {
	m.AuditEventsDrop.Inc()
}

func (m *Metrics) IncrementProbeFailure(store string) {
	m.StatusProbeFails.WithLabelValues(store).Inc()
}

// ObserveResolveSession records the duration of a token resolution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolveSession(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

// ObserveHash records the duration of a bcrypt hash or compare.
func (m *Metrics) ObserveHash(start time.Time) {
	m.HashDuration.Observe(time.Since(start).Seconds())
}

// ObserveStoreOp records the duration of a single store call.
func (m *Metrics) ObserveStoreOp(store, op string, start time.Time) {
	m.StoreOpDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
