package badgerstore

import (
	"context"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
)

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists if the ID, Google ID or ISBN is taken.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if book.ReviewIDs == nil {
		book.ReviewIDs = []string{}
	}
	return s.books.Create(ctx, book.ID, book)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

// GetBookByGoogleID retrieves a book by catalog volume id.
func (s *Store) GetBookByGoogleID(ctx context.Context, googleID string) (*domain.Book, error) {
	return s.books.GetByIndex(ctx, indexGoogleID, googleID)
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	for book, err := range s.books.List(ctx) {
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	slices.SortFunc(books, func(a, b *domain.Book) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return books, nil
}

// GetBookStats returns the review count and mean rating of a book.
func (s *Store) GetBookStats(ctx context.Context, bookID string) (domain.BookStats, error) {
	var stats domain.BookStats
	err := s.db.View(func(txn *badger.Txn) error {
		book, err := s.books.GetTxn(txn, bookID)
		if err != nil {
			return err
		}

		total := 0
		for _, reviewID := range book.ReviewIDs {
			review, err := s.reviews.GetTxn(txn, reviewID)
			if err != nil {
				return err
			}
			total += review.Rating
			stats.ReviewCount++
		}
		if stats.ReviewCount > 0 {
			stats.AverageRating = float64(total) / float64(stats.ReviewCount)
		}
		return nil
	})
	if err != nil {
		return domain.BookStats{}, err
	}
	return stats, ctx.Err()
}
