// Package store defines the persistence interface for the ShelfNotes server.
// Implementations live in the sqlite and badgerstore subpackages.
package store

import (
	"context"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Review writes are atomic: UpsertReview and DeleteReview change the review
// and the reference lists of its user and book together or not at all.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookByGoogleID(ctx context.Context, googleID string) (*domain.Book, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	GetBookStats(ctx context.Context, bookID string) (domain.BookStats, error)

	// Reviews
	UpsertReview(ctx context.Context, review *domain.Review) (*domain.Review, bool, error)
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	DeleteReview(ctx context.Context, id string) error
	ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.BookReview, error)
	ListReviewsByUser(ctx context.Context, userID string) ([]*domain.UserReview, error)
}
