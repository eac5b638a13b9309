package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks IdentityStore,CredentialVerifier,SessionManager,AuditPublisher

import (
	"context"
	"log/slog"
	"time"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	"sessiongate/pkg/attrs"
	id "sessiongate/pkg/domain"
	"sessiongate/pkg/platform/audit"
	"sessiongate/pkg/requestcontext"
)

// IdentityStore is the persistent identity backend (MongoDB, PostgreSQL or
// memory).
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	Insert(ctx context.Context, email, passwordHash string) (id.IdentityID, error)
	Count(ctx context.Context) (int64, error)
	IsAlive(ctx context.Context) bool
}

// CredentialVerifier checks a Basic Authorization header.
type CredentialVerifier interface {
	Verify(ctx context.Context, authorization string) (*models.Identity, error)
}

// SessionManager issues and resolves opaque session tokens.
type SessionManager interface {
	CreateSession(ctx context.Context, identity *models.Identity) (string, error)
	ResolveSession(ctx context.Context, token string) (id.IdentityID, bool, error)
	RevokeSession(ctx context.Context, token string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates registration, login, logout and identity lookup on
// top of the identity store and the session manager.
type Service struct {
	identities     IdentityStore
	verifier       CredentialVerifier
	sessions       SessionManager
	hasher         PasswordHasher
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(
	identities IdentityStore,
	verifier CredentialVerifier,
	sessions SessionManager,
	hasher PasswordHasher,
	opts ...Option,
) *Service {
	s := &Service{
		identities: identities,
		verifier:   verifier,
		sessions:   sessions,
		hasher:     hasher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logAudit writes the event to the structured log and forwards it to the
// audit publisher. Publishing failures never fail the request.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	clientIP := requestcontext.ClientIP(ctx)
	if clientIP != "" {
		attributes = append(attributes, "client_ip", clientIP)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     string(event),
		IdentityID: id.IdentityID(attrs.ExtractString(attributes, "identity_id")),
		Email:      attrs.ExtractString(attributes, "email"),
		Reason:     attrs.ExtractString(attributes, "reason"),
		RequestID:  requestID,
		ClientIP:   clientIP,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit event not recorded",
			"event", string(event),
			"error", err,
		)
	}
}

func (s *Service) incrementUsersCreated() {
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
}

func (s *Service) incrementLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(outcome)
	}
}

func (s *Service) observeHash(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveHash(start)
	}
}
