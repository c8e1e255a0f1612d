package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, created_at, updated_at, google_id, title, authors,
	description, cover_image, cover_blurhash, isbn`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b         domain.Book
		createdAt string
		updatedAt string
		googleID  sql.NullString
		authors   string
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&googleID,
		&b.Title,
		&authors,
		&b.Description,
		&b.CoverImage,
		&b.CoverBlurHash,
		&b.ISBN,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	b.GoogleID = googleID.String
	if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	b.ReviewIDs = []string{}

	return &b, nil
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists if the ID, Google ID or ISBN already exists.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return fmt.Errorf("encode authors: %w", err)
	}
	isbn := book.ISBN
	if isbn == "" {
		isbn = domain.NoISBN
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, created_at, updated_at, google_id, title, authors,
			description, cover_image, cover_blurhash, isbn
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		nullString(book.GoogleID),
		book.Title,
		string(authors),
		book.Description,
		book.CoverImage,
		book.CoverBlurHash,
		isbn,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	book.ReviewIDs = []string{}
	return nil
}

// GetBook retrieves a book by ID, with its review IDs oldest first.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.getBook(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
}

// GetBookByGoogleID retrieves a book by catalog volume id.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBookByGoogleID(ctx context.Context, googleID string) (*domain.Book, error) {
	return s.getBook(ctx, `SELECT `+bookColumns+` FROM books WHERE google_id = ?`, googleID)
}

func (s *Store) getBook(ctx context.Context, query, arg string) (*domain.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.ReviewIDs, err = s.queryIDs(ctx,
		`SELECT id FROM reviews WHERE book_id = ? ORDER BY created_at ASC, id ASC`, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns all books ordered by title. Review IDs are not loaded.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBookStats returns the review count and mean rating of a book.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBookStats(ctx context.Context, bookID string) (domain.BookStats, error) {
	var (
		stats  domain.BookStats
		exists int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM books WHERE id = ?),
			COUNT(r.id),
			COALESCE(AVG(r.rating), 0)
		FROM reviews r WHERE r.book_id = ?`,
		bookID, bookID,
	).Scan(&exists, &stats.ReviewCount, &stats.AverageRating)
	if err != nil {
		return domain.BookStats{}, err
	}
	if exists == 0 {
		return domain.BookStats{}, store.ErrNotFound
	}
	return stats, nil
}
