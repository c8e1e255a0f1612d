package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, google_id, username, email, profile_pic, is_admin`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
		updatedAt string
		googleID  sql.NullString
		isAdmin   int
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&googleID,
		&u.Username,
		&u.Email,
		&u.ProfilePic,
		&isAdmin,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	u.GoogleID = googleID.String
	u.IsAdmin = isAdmin != 0

	return &u, nil
}

// CreateUser inserts a new user into the database.
// Returns store.ErrAlreadyExists if the ID, Google ID or email already exists.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, google_id, username, email, email_lower,
			profile_pic, is_admin
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		nullString(user.GoogleID),
		user.Username,
		user.Email,
		normalize.Email(user.Email),
		user.ProfilePic,
		boolToInt(user.IsAdmin),
	)
	if err != nil {
		return mapConstraintError(err)
	}
	user.ReviewIDs = []string{}
	return nil
}

// GetUser retrieves a user by ID, with its review IDs oldest first.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByGoogleID retrieves a user by identity provider subject.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.ReviewIDs, err = s.queryIDs(ctx,
		`SELECT id FROM reviews WHERE user_id = ? ORDER BY created_at ASC, id ASC`, u.ID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser updates the profile fields of an existing user.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?, google_id = ?, username = ?, email = ?, email_lower = ?,
			profile_pic = ?, is_admin = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		nullString(user.GoogleID),
		user.Username,
		user.Email,
		normalize.Email(user.Email),
		user.ProfilePic,
		boolToInt(user.IsAdmin),
		user.ID,
	)
	if err != nil {
		return mapConstraintError(err)
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
