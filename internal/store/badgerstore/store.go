// Package badgerstore implements store.Store on an embedded Badger database.
//
// Reference lists (User.ReviewIDs, Book.ReviewIDs) are stored on the owning
// records and maintained in the same transaction as the review itself.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// maxTxnRetries bounds how often a conflicting read-write transaction is retried.
const maxTxnRetries = 10

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	users   *Entity[domain.User]
	books   *Entity[domain.Book]
	reviews *Entity[domain.Review]
}

var _ store.Store = (*Store)(nil)

// Options configures Open.
type Options struct {
	// InMemory runs Badger without touching disk; path is ignored.
	InMemory bool
}

// Open opens (or creates) a Badger database at path.
func Open(path string, logger *slog.Logger, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.initEntities()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path, "in_memory", opts.InMemory)
	}

	return s, nil
}

func (s *Store) initEntities() {
	s.users = NewEntity[domain.User](s, userPrefix).
		WithIndex(indexGoogleID, func(u *domain.User) []string {
			if u.GoogleID == "" {
				return nil
			}
			return []string{u.GoogleID}
		}).
		WithIndexTransform(indexEmail,
			func(u *domain.User) []string {
				return []string{normalize.Email(u.Email)}
			},
			normalize.Email, // Transform lookups to be case-insensitive
		)

	s.books = NewEntity[domain.Book](s, bookPrefix).
		WithIndex(indexGoogleID, func(b *domain.Book) []string {
			if b.GoogleID == "" {
				return nil
			}
			return []string{b.GoogleID}
		}).
		WithIndex(indexISBN, func(b *domain.Book) []string {
			// The "N/A" sentinel is shared by every book without an ISBN.
			if !b.HasISBN() {
				return nil
			}
			return []string{b.ISBN}
		})

	s.reviews = NewEntity[domain.Review](s, reviewPrefix).
		WithIndex(indexBookUser, func(r *domain.Review) []string {
			return []string{bookUserKey(r.BookID, r.UserID)}
		})
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflict with a concurrent transaction.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := range maxTxnRetries {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("retrying conflicting transaction", "attempt", attempt+1)
		}
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func bookUserKey(bookID, userID string) string {
	return bookID + ":" + userID
}
