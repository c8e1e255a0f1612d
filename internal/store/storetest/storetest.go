// Package storetest is a behavioural test suite shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/id"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, newStore(t)) })
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("BookUniqueness", func(t *testing.T) { testBookUniqueness(t, newStore(t)) })
	t.Run("UpsertReview", func(t *testing.T) { testUpsertReview(t, newStore(t)) })
	t.Run("UpsertReviewMissingParents", func(t *testing.T) { testUpsertReviewMissingParents(t, newStore(t)) })
	t.Run("ListReviews", func(t *testing.T) { testListReviews(t, newStore(t)) })
	t.Run("DeleteReview", func(t *testing.T) { testDeleteReview(t, newStore(t)) })
	t.Run("BookStats", func(t *testing.T) { testBookStats(t, newStore(t)) })
	t.Run("ConcurrentUpsert", func(t *testing.T) { testConcurrentUpsert(t, newStore(t)) })
}

// NewUser returns an unsaved user with fresh IDs.
func NewUser(name string) *domain.User {
	u := &domain.User{
		Record:     domain.Record{ID: id.MustGenerate(id.PrefixUser)},
		GoogleID:   "g-" + name,
		Username:   name,
		Email:      name + "@example.com",
		ProfilePic: "https://example.com/" + name + ".png",
	}
	u.InitTimestamps()
	return u
}

// NewBook returns an unsaved book with fresh IDs.
func NewBook(googleID, title string) *domain.Book {
	b := &domain.Book{
		Record:      domain.Record{ID: id.MustGenerate(id.PrefixBook)},
		GoogleID:    googleID,
		Title:       title,
		Authors:     []string{"Someone"},
		Description: "About " + title,
		CoverImage:  "https://example.com/" + googleID + ".jpg",
		ISBN:        domain.NoISBN,
	}
	b.InitTimestamps()
	return b
}

// NewReview returns an unsaved review of book by user.
func NewReview(user *domain.User, book *domain.Book, rating int, text string) *domain.Review {
	r := &domain.Review{
		Record: domain.Record{ID: id.MustGenerate(id.PrefixReview)},
		UserID: user.ID,
		BookID: book.ID,
		Text:   text,
		Rating: rating,
	}
	r.InitTimestamps()
	return r
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := NewUser("ada")
	user.IsAdmin = true
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "g-ada", got.GoogleID)
	assert.Equal(t, "ada", got.Username)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, user.ProfilePic, got.ProfilePic)
	assert.True(t, got.IsAdmin)
	assert.Empty(t, got.ReviewIDs)
	assert.WithinDuration(t, user.CreatedAt, got.CreatedAt, time.Millisecond)

	byGoogle, err := s.GetUserByGoogleID(ctx, "g-ada")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byGoogle.ID)

	got.Username = "Ada L."
	got.ProfilePic = "https://example.com/new.png"
	got.IsAdmin = false
	got.Touch()
	require.NoError(t, s.UpdateUser(ctx, got))

	updated, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Username)
	assert.Equal(t, "https://example.com/new.png", updated.ProfilePic)
	assert.False(t, updated.IsAdmin)

	_, err = s.GetUser(ctx, "usr-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByGoogleID(ctx, "g-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	ghost := NewUser("ghost")
	assert.ErrorIs(t, s.UpdateUser(ctx, ghost), store.ErrNotFound)
}

func testUserUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := NewUser("grace")
	require.NoError(t, s.CreateUser(ctx, first))

	sameSubject := NewUser("other")
	sameSubject.GoogleID = first.GoogleID
	assert.ErrorIs(t, s.CreateUser(ctx, sameSubject), store.ErrAlreadyExists)

	sameEmail := NewUser("another")
	sameEmail.Email = "GRACE@Example.com"
	assert.ErrorIs(t, s.CreateUser(ctx, sameEmail), store.ErrAlreadyExists)
}

func testBooks(t *testing.T, s store.Store) {
	ctx := context.Background()

	hobbit := NewBook("vol-hobbit", "The Hobbit")
	hobbit.Authors = []string{"J.R.R. Tolkien"}
	hobbit.ISBN = "9780007458424"
	hobbit.CoverBlurHash = "LEHV6nWB2yk8pyo0adR*.7kCMdnj"
	require.NoError(t, s.CreateBook(ctx, hobbit))
	require.NoError(t, s.CreateBook(ctx, NewBook("vol-dune", "dune")))
	require.NoError(t, s.CreateBook(ctx, NewBook("vol-emma", "Emma")))

	got, err := s.GetBook(ctx, hobbit.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", got.Title)
	assert.Equal(t, []string{"J.R.R. Tolkien"}, got.Authors)
	assert.Equal(t, "About The Hobbit", got.Description)
	assert.Equal(t, hobbit.CoverImage, got.CoverImage)
	assert.Equal(t, hobbit.CoverBlurHash, got.CoverBlurHash)
	assert.Equal(t, "9780007458424", got.ISBN)
	assert.Empty(t, got.ReviewIDs)

	byGoogle, err := s.GetBookByGoogleID(ctx, "vol-hobbit")
	require.NoError(t, err)
	assert.Equal(t, hobbit.ID, byGoogle.ID)

	_, err = s.GetBookByGoogleID(ctx, "vol-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetBook(ctx, "book-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "dune", books[0].Title)
	assert.Equal(t, "Emma", books[1].Title)
	assert.Equal(t, "The Hobbit", books[2].Title)
}

func testBookUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := NewBook("vol-1", "First")
	first.ISBN = "9780000000001"
	require.NoError(t, s.CreateBook(ctx, first))

	assert.ErrorIs(t, s.CreateBook(ctx, NewBook("vol-1", "Duplicate volume")), store.ErrAlreadyExists)

	sameISBN := NewBook("vol-2", "Same ISBN")
	sameISBN.ISBN = "9780000000001"
	assert.ErrorIs(t, s.CreateBook(ctx, sameISBN), store.ErrAlreadyExists)

	// Books without an ISBN share the sentinel value.
	require.NoError(t, s.CreateBook(ctx, NewBook("vol-3", "No ISBN")))
	require.NoError(t, s.CreateBook(ctx, NewBook("vol-4", "Also no ISBN")))
}

func seed(t *testing.T, s store.Store) (*domain.User, *domain.Book) {
	t.Helper()
	ctx := context.Background()

	user := NewUser("reader")
	require.NoError(t, s.CreateUser(ctx, user))
	book := NewBook("abc123", "Some Book")
	require.NoError(t, s.CreateBook(ctx, book))
	return user, book
}

func testUpsertReview(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, book := seed(t, s)

	first := NewReview(user, book, 5, "Great")
	stored, created, err := s.UpsertReview(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, 5, stored.Rating)
	assert.Equal(t, "Great", stored.Text)

	second := NewReview(user, book, 3, "Meh")
	updated, created, err := s.UpsertReview(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, updated.ID, "update keeps the original review id")
	assert.Equal(t, 3, updated.Rating)
	assert.Equal(t, "Meh", updated.Text)
	assert.WithinDuration(t, first.CreatedAt, updated.CreatedAt, time.Millisecond)

	got, err := s.GetReview(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rating)
	assert.Equal(t, "Meh", got.Text)

	_, err = s.GetReview(ctx, second.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	reloadedUser, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, reloadedUser.ReviewIDs)

	reloadedBook, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, reloadedBook.ReviewIDs)
}

func testUpsertReviewMissingParents(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, book := seed(t, s)

	orphanBook := NewBook("vol-unsaved", "Unsaved")
	_, _, err := s.UpsertReview(ctx, NewReview(user, orphanBook, 4, "Nice"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	orphanUser := NewUser("unsaved")
	_, _, err = s.UpsertReview(ctx, NewReview(orphanUser, book, 4, "Nice"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	reloaded, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ReviewIDs)
}

func testListReviews(t *testing.T, s store.Store) {
	ctx := context.Background()
	ada, book := seed(t, s)
	bob := NewUser("bob")
	require.NoError(t, s.CreateUser(ctx, bob))
	other := NewBook("vol-other", "Other Book")
	require.NoError(t, s.CreateBook(ctx, other))

	base := time.Now().UTC().Add(-time.Hour)
	older := NewReview(ada, book, 4, "Older")
	older.CreatedAt, older.UpdatedAt = base, base
	newer := NewReview(bob, book, 2, "Newer")
	newer.CreatedAt, newer.UpdatedAt = base.Add(time.Minute), base.Add(time.Minute)
	adaOther := NewReview(ada, other, 5, "Other")
	adaOther.CreatedAt, adaOther.UpdatedAt = base.Add(2*time.Minute), base.Add(2*time.Minute)

	for _, r := range []*domain.Review{older, newer, adaOther} {
		_, _, err := s.UpsertReview(ctx, r)
		require.NoError(t, err)
	}

	byBook, err := s.ListReviewsByBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, byBook, 2)
	assert.Equal(t, newer.ID, byBook[0].ID)
	assert.Equal(t, older.ID, byBook[1].ID)
	assert.Equal(t, domain.ReviewAuthor{ID: bob.ID, Username: "bob", ProfilePic: bob.ProfilePic}, byBook[0].Author)
	assert.Equal(t, ada.Username, byBook[1].Author.Username)

	byUser, err := s.ListReviewsByUser(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, adaOther.ID, byUser[0].ID)
	assert.Equal(t, older.ID, byUser[1].ID)
	assert.Equal(t, domain.ReviewedBook{ID: other.ID, GoogleID: "vol-other", Title: "Other Book", CoverImage: other.CoverImage}, byUser[0].Book)

	empty, err := s.ListReviewsByBook(ctx, "book-unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	none, err := s.ListReviewsByUser(ctx, "usr-unknown")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testDeleteReview(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, book := seed(t, s)

	keep := NewReview(user, NewBookSaved(t, s, "vol-keep"), 4, "Keep")
	_, _, err := s.UpsertReview(ctx, keep)
	require.NoError(t, err)

	doomed := NewReview(user, book, 1, "Bad")
	_, _, err = s.UpsertReview(ctx, doomed)
	require.NoError(t, err)

	require.NoError(t, s.DeleteReview(ctx, doomed.ID))

	_, err = s.GetReview(ctx, doomed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	reloadedUser, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, reloadedUser.ReviewIDs)

	reloadedBook, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, reloadedBook.ReviewIDs)

	assert.ErrorIs(t, s.DeleteReview(ctx, doomed.ID), store.ErrNotFound)

	// The pair is free again.
	_, created, err := s.UpsertReview(ctx, NewReview(user, book, 2, "Second try"))
	require.NoError(t, err)
	assert.True(t, created)
}

// NewBookSaved creates and stores a book with the given catalog id.
func NewBookSaved(t *testing.T, s store.Store, googleID string) *domain.Book {
	t.Helper()
	b := NewBook(googleID, "Book "+googleID)
	require.NoError(t, s.CreateBook(context.Background(), b))
	return b
}

func testBookStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	ada, book := seed(t, s)
	bob := NewUser("bob")
	require.NoError(t, s.CreateUser(ctx, bob))

	stats, err := s.GetBookStats(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookStats{}, stats)

	_, _, err = s.UpsertReview(ctx, NewReview(ada, book, 5, "Loved it"))
	require.NoError(t, err)
	_, _, err = s.UpsertReview(ctx, NewReview(bob, book, 2, "Not for me"))
	require.NoError(t, err)

	stats, err = s.GetBookStats(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReviewCount)
	assert.InDelta(t, 3.5, stats.AverageRating, 0.001)

	_, err = s.GetBookStats(ctx, "book-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, book := seed(t, s)

	const writers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := s.UpsertReview(ctx, NewReview(user, book, 1+i%5, "Concurrent"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if c {
				created++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, created, "exactly one writer creates the review")

	reloadedUser, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, reloadedUser.ReviewIDs, 1)

	reloadedBook, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, reloadedBook.ReviewIDs, 1)
	assert.Equal(t, reloadedUser.ReviewIDs, reloadedBook.ReviewIDs)
}
