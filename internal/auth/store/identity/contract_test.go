package identity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sessiongate/internal/auth/models"
	id "sessiongate/pkg/domain"
	"sessiongate/pkg/platform/sentinel"
)

type identityStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	Insert(ctx context.Context, email, passwordHash string) (id.IdentityID, error)
	Count(ctx context.Context) (int64, error)
	IsAlive(ctx context.Context) bool
}

// storeContractSuite holds the behavior every identity backend must share.
// Backend suites embed it and set store in SetupTest.
type storeContractSuite struct {
	suite.Suite
	store identityStore
}

func uniqueEmail() string {
	return "user-" + uuid.NewString()[:8] + "@example.com"
}

func (s *storeContractSuite) TestInsertAndLookup() {
	ctx := context.Background()
	email := uniqueEmail()

	identityID, err := s.store.Insert(ctx, email, "hash-1")
	s.Require().NoError(err)
	s.False(identityID.IsNil())

	s.Run("by email", func() {
		found, err := s.store.FindByEmail(ctx, email)
		s.Require().NoError(err)
		s.Equal(identityID, found.ID)
		s.Equal(email, found.Email)
		s.Equal("hash-1", found.PasswordHash)
		s.False(found.CreatedAt.IsZero())
	})

	s.Run("by id", func() {
		found, err := s.store.FindByID(ctx, identityID)
		s.Require().NoError(err)
		s.Equal(email, found.Email)
	})
}

func (s *storeContractSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByEmail(ctx, "missing@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(ctx, id.IdentityID("000000000000000000000000"))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(ctx, id.IdentityID("not-a-real-id"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()
	email := uniqueEmail()

	first, err := s.store.Insert(ctx, email, "hash-1")
	s.Require().NoError(err)

	_, err = s.store.Insert(ctx, email, "hash-2")
	s.ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.FindByEmail(ctx, email)
	s.Require().NoError(err)
	s.Equal(first, found.ID, "first identity must remain intact")
	s.Equal("hash-1", found.PasswordHash)
}

func (s *storeContractSuite) TestEmailIsCaseSensitive() {
	ctx := context.Background()
	email := uniqueEmail()

	_, err := s.store.Insert(ctx, email, "hash")
	s.Require().NoError(err)

	_, err = s.store.FindByEmail(ctx, "UPPER-"+email)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDuplicateInsert verifies exactly one of many racing inserts
// for the same email wins.
func (s *storeContractSuite) TestConcurrentDuplicateInsert() {
	ctx := context.Background()
	email := uniqueEmail()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(ctx, email, "hash")
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *storeContractSuite) TestCount() {
	ctx := context.Background()

	before, err := s.store.Count(ctx)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, err := s.store.Insert(ctx, uniqueEmail(), "hash")
		s.Require().NoError(err)
	}

	after, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(before+3, after)
}

func (s *storeContractSuite) TestIsAlive() {
	s.True(s.store.IsAlive(context.Background()))
}
