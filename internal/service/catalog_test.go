package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/metadata/googlebooks"
	"github.com/shelfnotes/shelfnotes-server/internal/search"
)

func TestCatalogService_Search(t *testing.T) {
	env := setupTestEnv(t)
	raw := map[string]any{
		"kind":       "books#volumes",
		"totalItems": 1,
		"items":      []any{map[string]any{"id": "abc123"}},
	}
	env.catalog.searchRes = &googlebooks.SearchResult{TotalItems: 1, ItemCount: 1, Raw: raw}

	got, err := env.catalogs.Search(context.Background(), "  the hobbit ")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Equal(t, "the hobbit", env.catalog.lastQuery)
}

func TestCatalogService_Search_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("blank query", func(t *testing.T) {
		env := setupTestEnv(t)
		_, err := env.catalogs.Search(ctx, "   ")
		derr := requireCode(t, err, domainerrors.CodeValidation)
		assert.Equal(t, "Query parameter is required", derr.Message)
	})

	t.Run("no items", func(t *testing.T) {
		env := setupTestEnv(t)
		_, err := env.catalogs.Search(ctx, "zzzz")
		derr := requireCode(t, err, domainerrors.CodeNotFound)
		assert.Equal(t, "No books found for the given query", derr.Message)
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		env := setupTestEnv(t)
		env.catalog.searchErr = &googlebooks.Error{Op: "search", Err: googlebooks.ErrServer}
		_, err := env.catalogs.Search(ctx, "hobbit")
		derr := requireCode(t, err, domainerrors.CodeUpstream)
		assert.Equal(t, "Error fetching books", derr.Message)
	})

	t.Run("catalog rate limited", func(t *testing.T) {
		env := setupTestEnv(t)
		env.catalog.searchErr = &googlebooks.Error{Op: "search", Err: googlebooks.ErrRateLimited}
		_, err := env.catalogs.Search(ctx, "hobbit")
		requireCode(t, err, domainerrors.CodeUpstream)
	})
}

func TestCatalogService_SearchReviewed(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.catalog.addVolume("hobbit", "The Hobbit", "J.R.R. Tolkien")
	env.catalog.addVolume("silmarillion", "The Silmarillion", "J.R.R. Tolkien")
	env.catalog.addVolume("dune", "Dune", "Frank Herbert")

	ada := env.login(t, "ada")
	for _, googleID := range []string{"hobbit", "silmarillion", "dune"} {
		_, err := env.reviews.Submit(ctx, ada, SubmitReviewRequest{Text: "Worth reading", Rating: 4, BookID: googleID})
		require.NoError(t, err)
	}

	page, err := env.catalogs.SearchReviewed(ctx, ReviewedQuery{Query: "hobbit"})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "The Hobbit", page.Books[0].Book.Title)
	assert.Equal(t, domain.BookStats{ReviewCount: 1, AverageRating: 4}, page.Books[0].Stats)

	page, err = env.catalogs.SearchReviewed(ctx, ReviewedQuery{Author: "J.R.R. Tolkien", Sort: search.SortTitle})
	require.NoError(t, err)
	require.Len(t, page.Books, 2)
	assert.Equal(t, "The Hobbit", page.Books[0].Book.Title)
	assert.Equal(t, "The Silmarillion", page.Books[1].Book.Title)

	page, err = env.catalogs.SearchReviewed(ctx, ReviewedQuery{Sort: search.SortTitle, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Books, 2)
	assert.NotEmpty(t, page.Authors)
}

func TestCatalogService_SearchReviewed_InvalidSort(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.catalogs.SearchReviewed(context.Background(), ReviewedQuery{Sort: "rating"})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestCatalogService_SearchReviewed_Disabled(t *testing.T) {
	env := setupTestEnv(t)
	svc := NewCatalogService(env.catalog, nil, env.store, nil)

	_, err := svc.SearchReviewed(context.Background(), ReviewedQuery{Query: "hobbit"})
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestCatalogService_SearchReviewed_SkipsStaleHits(t *testing.T) {
	env := setupTestEnv(t)

	ghost := &domain.Book{
		Record:  domain.Record{ID: "book-ghost"},
		Title:   "Ghost Book",
		Authors: []string{"Nobody"},
	}
	ghost.ApplyDefaults()
	require.NoError(t, env.index.IndexBook(ghost))

	page, err := env.catalogs.SearchReviewed(context.Background(), ReviewedQuery{Query: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, page.Books)
}
