package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sessiongate/internal/auth/models"
	id "sessiongate/pkg/domain"
	"sessiongate/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in process memory. Email uniqueness is
// guarded under the same lock as the insert.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.IdentityID]*models.Identity
	byEmail map[string]id.IdentityID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.IdentityID]*models.Identity),
		byEmail: make(map[string]id.IdentityID),
	}
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identityID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[identityID]), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(identity), nil
}

func (s *InMemoryStore) Insert(_ context.Context, email, passwordHash string) (id.IdentityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return "", sentinel.ErrConflict
	}
	identityID := id.IdentityID(uuid.NewString())
	s.byID[identityID] = &models.Identity{
		ID:           identityID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byEmail[email] = identityID
	return identityID, nil
}

func (s *InMemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *InMemoryStore) IsAlive(context.Context) bool {
	return true
}

func clone(identity *models.Identity) *models.Identity {
	c := *identity
	return &c
}
