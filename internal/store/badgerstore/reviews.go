package badgerstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// UpsertReview creates review, or overwrites the text and rating of the
// caller's existing review of the same book. It reports whether a new review
// was created. The returned review is the stored one; on update it keeps its
// original ID and creation time.
//
// Creation appends the review ID to the user's and the book's lists in the
// same transaction. Returns store.ErrNotFound if the user or book is missing.
func (s *Store) UpsertReview(ctx context.Context, review *domain.Review) (*domain.Review, bool, error) {
	var (
		result  *domain.Review
		created bool
	)

	err := s.update(ctx, func(txn *badger.Txn) error {
		existing, err := s.reviews.GetByIndexTxn(txn, indexBookUser, bookUserKey(review.BookID, review.UserID))
		switch {
		case err == nil:
			existing.Text = review.Text
			existing.Rating = review.Rating
			existing.UpdatedAt = time.Now().UTC()
			if err := s.reviews.UpdateTxn(txn, existing.ID, existing); err != nil {
				return err
			}
			result, created = existing, false
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		user, err := s.users.GetTxn(txn, review.UserID)
		if err != nil {
			return err
		}
		book, err := s.books.GetTxn(txn, review.BookID)
		if err != nil {
			return err
		}

		fresh := *review
		if err := s.reviews.CreateTxn(txn, fresh.ID, &fresh); err != nil {
			return err
		}

		user.ReviewIDs = appendUnique(user.ReviewIDs, fresh.ID)
		if err := s.users.UpdateTxn(txn, user.ID, user); err != nil {
			return err
		}
		book.ReviewIDs = appendUnique(book.ReviewIDs, fresh.ID)
		if err := s.books.UpdateTxn(txn, book.ID, book); err != nil {
			return err
		}

		result, created = &fresh, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.Get(ctx, id)
}

// DeleteReview removes a review and its entries in the user's and book's
// lists in one transaction. Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		review, err := s.reviews.GetTxn(txn, id)
		if err != nil {
			return err
		}

		if user, err := s.users.GetTxn(txn, review.UserID); err == nil {
			user.ReviewIDs = remove(user.ReviewIDs, id)
			if err := s.users.UpdateTxn(txn, user.ID, user); err != nil {
				return err
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if book, err := s.books.GetTxn(txn, review.BookID); err == nil {
			book.ReviewIDs = remove(book.ReviewIDs, id)
			if err := s.books.UpdateTxn(txn, book.ID, book); err != nil {
				return err
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		return s.reviews.DeleteTxn(txn, id)
	})
}

// ListReviewsByBook returns the book's reviews newest first, each with its author.
// A missing book yields an empty list.
func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.BookReview, error) {
	out := []*domain.BookReview{}
	err := s.db.View(func(txn *badger.Txn) error {
		book, err := s.books.GetTxn(txn, bookID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, reviewID := range book.ReviewIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			review, err := s.reviews.GetTxn(txn, reviewID)
			if err != nil {
				return err
			}
			entry := &domain.BookReview{Review: *review}
			if user, err := s.users.GetTxn(txn, review.UserID); err == nil {
				entry.Author = domain.ReviewAuthor{ID: user.ID, Username: user.Username, ProfilePic: user.ProfilePic}
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *domain.BookReview) int {
		return newestFirst(&a.Review, &b.Review)
	})
	return out, nil
}

// ListReviewsByUser returns the user's reviews newest first, each with its book.
// A missing user yields an empty list.
func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*domain.UserReview, error) {
	out := []*domain.UserReview{}
	err := s.db.View(func(txn *badger.Txn) error {
		user, err := s.users.GetTxn(txn, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, reviewID := range user.ReviewIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			review, err := s.reviews.GetTxn(txn, reviewID)
			if err != nil {
				return err
			}
			entry := &domain.UserReview{Review: *review}
			if book, err := s.books.GetTxn(txn, review.BookID); err == nil {
				entry.Book = domain.ReviewedBook{ID: book.ID, GoogleID: book.GoogleID, Title: book.Title, CoverImage: book.CoverImage}
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *domain.UserReview) int {
		return newestFirst(&a.Review, &b.Review)
	})
	return out, nil
}

func newestFirst(a, b *domain.Review) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}
