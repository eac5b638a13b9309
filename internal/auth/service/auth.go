package service

import (
	"context"
	"errors"
	"time"

	"sessiongate/internal/auth/models"
	"sessiongate/internal/platform/metrics"
	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/audit"
	"sessiongate/pkg/platform/sentinel"
)

// Register creates an identity. Only id and email are returned.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.IdentityResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	hash, err := s.hasher.Hash(req.Password)
	s.observeHash(start)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	identityID, err := s.identities.Insert(ctx, req.Email, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "Already exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}

	s.logAudit(ctx, audit.EventIdentityRegistered,
		"identity_id", identityID,
		"email", req.Email,
	)
	s.incrementUsersCreated()

	return &models.IdentityResult{ID: identityID.String(), Email: req.Email}, nil
}

// Connect exchanges Basic credentials for a new session token.
func (s *Service) Connect(ctx context.Context, authorization string) (*models.TokenResult, error) {
	identity, err := s.verifier.Verify(ctx, authorization)
	if err != nil {
		s.recordAuthFailure(ctx, err)
		return nil, err
	}

	token, err := s.sessions.CreateSession(ctx, identity)
	if err != nil {
		s.incrementLogin(metrics.OutcomeError)
		return nil, err
	}

	s.logAudit(ctx, audit.EventSessionCreated,
		"identity_id", identity.ID,
		"email", identity.Email,
	)
	s.incrementLogin(metrics.OutcomeSuccess)

	return &models.TokenResult{Token: token}, nil
}

func (s *Service) recordAuthFailure(ctx context.Context, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		s.incrementLogin(metrics.OutcomeError)
		return
	}
	switch de.Code {
	case dErrors.CodeMalformed:
		s.incrementLogin(metrics.OutcomeMalformed)
	case dErrors.CodeUnauthorized:
		s.incrementLogin(metrics.OutcomeUnauthorized)
	default:
		s.incrementLogin(metrics.OutcomeError)
		return
	}
	s.logAudit(ctx, audit.EventAuthFailed, "reason", string(de.Code))
}

// Disconnect revokes a live session token. An empty or unknown token is
// Unauthorized.
func (s *Service) Disconnect(ctx context.Context, token string) error {
	identityID, err := s.resolveToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.RevokeSession(ctx, token); err != nil {
		return err
	}

	s.logAudit(ctx, audit.EventSessionRevoked, "identity_id", identityID)
	return nil
}

// Authenticate resolves either variant of AuthInput to the identity it names.
func (s *Service) Authenticate(ctx context.Context, input models.AuthInput) (*models.Identity, error) {
	switch input.Kind() {
	case models.AuthKindCredentials:
		return s.verifier.Verify(ctx, input.Authorization())
	case models.AuthKindToken:
		identityID, err := s.resolveToken(ctx, input.Token())
		if err != nil {
			return nil, err
		}
		return s.loadIdentity(ctx, identityID)
	default:
		return nil, unauthorized()
	}
}

// AuthenticateHeaders adapts Authenticate to raw request headers for the
// auth middleware.
func (s *Service) AuthenticateHeaders(ctx context.Context, authorization, token string) (id.IdentityID, error) {
	input, err := models.ParseAuthInput(authorization, token)
	if err != nil {
		return "", err
	}
	identity, err := s.Authenticate(ctx, input)
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}

// Me returns the public view of an authenticated identity.
func (s *Service) Me(ctx context.Context, identityID id.IdentityID) (*models.IdentityResult, error) {
	if identityID.IsNil() {
		return nil, unauthorized()
	}
	identity, err := s.loadIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return models.NewIdentityResult(identity), nil
}

func (s *Service) resolveToken(ctx context.Context, token string) (id.IdentityID, error) {
	if token == "" {
		return "", unauthorized()
	}
	identityID, ok, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", unauthorized()
	}
	return identityID, nil
}

// loadIdentity treats a session pointing at a missing identity as
// Unauthorized rather than NotFound.
func (s *Service) loadIdentity(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, unauthorized()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
	return identity, nil
}

func unauthorized() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
}
