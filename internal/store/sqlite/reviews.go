package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// reviewColumns is the ordered list of columns selected in review queries.
// Must match the scan order in scanReview.
const reviewColumns = `r.id, r.created_at, r.updated_at, r.user_id, r.book_id, r.text, r.rating`

type scanner interface{ Scan(dest ...any) error }

func scanReviewInto(r *domain.Review, createdAt, updatedAt *string) []any {
	return []any{&r.ID, createdAt, updatedAt, &r.UserID, &r.BookID, &r.Text, &r.Rating}
}

func parseReviewTimes(r *domain.Review, createdAt, updatedAt string) error {
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	return err
}

// scanReview scans a row of reviewColumns into a domain.Review.
func scanReview(row scanner) (*domain.Review, error) {
	var (
		r                    domain.Review
		createdAt, updatedAt string
	)
	if err := row.Scan(scanReviewInto(&r, &createdAt, &updatedAt)...); err != nil {
		return nil, err
	}
	if err := parseReviewTimes(&r, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertReview inserts review, or overwrites the text and rating of the
// existing review for the same (book, user) pair, in a single statement.
// It reports whether a new row was created.
// Returns store.ErrNotFound if the user or book does not exist.
func (s *Store) UpsertReview(ctx context.Context, review *domain.Review) (*domain.Review, bool, error) {
	now := time.Now().UTC()
	createdAt, updatedAt := review.CreatedAt, review.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, created_at, updated_at, user_id, book_id, text, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, user_id) DO UPDATE SET
			text = excluded.text,
			rating = excluded.rating,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at, user_id, book_id, text, rating`,
		review.ID,
		formatTime(createdAt),
		formatTime(updatedAt),
		review.UserID,
		review.BookID,
		review.Text,
		review.Rating,
	)

	stored, err := scanReview(row)
	if err != nil {
		return nil, false, mapConstraintError(err)
	}
	return stored, stored.ID == review.ID, nil
}

// GetReview retrieves a review by ID.
// Returns store.ErrNotFound if the review does not exist.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReview removes a review. Both reference lists are derived from the
// reviews table, so the single DELETE prunes them too.
// Returns store.ErrNotFound if the review does not exist.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListReviewsByBook returns the book's reviews newest first, each with its author.
func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.BookReview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`, u.id, u.username, u.profile_pic
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.BookReview{}
	for rows.Next() {
		var (
			entry                domain.BookReview
			createdAt, updatedAt string
		)
		dest := append(scanReviewInto(&entry.Review, &createdAt, &updatedAt),
			&entry.Author.ID, &entry.Author.Username, &entry.Author.ProfilePic)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := parseReviewTimes(&entry.Review, createdAt, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// ListReviewsByUser returns the user's reviews newest first, each with its book.
func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*domain.UserReview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`, b.id, COALESCE(b.google_id, ''), b.title, b.cover_image
		FROM reviews r
		JOIN books b ON b.id = r.book_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.UserReview{}
	for rows.Next() {
		var (
			entry                domain.UserReview
			createdAt, updatedAt string
		)
		dest := append(scanReviewInto(&entry.Review, &createdAt, &updatedAt),
			&entry.Book.ID, &entry.Book.GoogleID, &entry.Book.Title, &entry.Book.CoverImage)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := parseReviewTimes(&entry.Review, createdAt, updatedAt); err != nil {
			return nil, err
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}
