package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
)

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the ID, Google ID or email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ReviewIDs == nil {
		user.ReviewIDs = []string{}
	}
	return s.users.Create(ctx, user.ID, user)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// GetUserByGoogleID retrieves a user by identity provider subject.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, indexGoogleID, googleID)
}

// UpdateUser overwrites the profile fields of an existing user.
// The stored review list is kept; callers cannot change it through this method.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		existing, err := s.users.GetTxn(txn, user.ID)
		if err != nil {
			return err
		}
		updated := *user
		updated.CreatedAt = existing.CreatedAt
		updated.ReviewIDs = existing.ReviewIDs
		return s.users.UpdateTxn(txn, user.ID, &updated)
	})
}
