package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	id "sessiongate/pkg/domain"
	"sessiongate/pkg/platform/sentinel"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore persists identities in the identities table.
type PostgresStore struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

type PostgresOption func(*PostgresStore)

func WithPostgresMetrics(m *metrics.Metrics) PostgresOption {
	return func(s *PostgresStore) {
		s.metrics = m
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	defer s.observe("find_by_email", time.Now())
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM identities
		WHERE email = $1
	`, email))
}

func (s *PostgresStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	defer s.observe("find_by_id", time.Now())
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM identities
		WHERE id = $1
	`, identityID.String()))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Identity, error) {
	var (
		identity models.Identity
		rawID    string
	)
	err := row.Scan(&rawID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	identity.ID = id.IdentityID(rawID)
	return &identity, nil
}

func (s *PostgresStore) Insert(ctx context.Context, email, passwordHash string) (id.IdentityID, error) {
	defer s.observe("insert", time.Now())

	identityID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, identityID, email, passwordHash, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return "", sentinel.ErrConflict
		}
		return "", fmt.Errorf("insert identity: %w", err)
	}
	return id.IdentityID(identityID), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	defer s.observe("count", time.Now())
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) IsAlive(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *PostgresStore) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOp("postgres", op, start)
	}
}
