package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
)

// setupTestIndex creates an in-memory search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testBook(id, googleID, title string, authors ...string) *domain.Book {
	if len(authors) == 0 {
		authors = []string{domain.UnknownAuthor}
	}
	return &domain.Book{
		Record:      domain.Record{ID: id, CreatedAt: time.Now()},
		GoogleID:    googleID,
		Title:       title,
		Authors:     authors,
		Description: domain.NoDescription,
		ISBN:        domain.NoISBN,
	}
}

func seedIndex(t *testing.T, index *SearchIndex) {
	t.Helper()

	hobbit := testBook("book-1", "vol-hobbit", "The Hobbit", "J.R.R. Tolkien")
	hobbit.ISBN = "9780261102217"
	hobbit.Description = "A hobbit goes on an unexpected journey with dwarves."
	hobbit.CreatedAt = time.Now().Add(-2 * time.Hour)

	rings := testBook("book-2", "vol-rings", "The Fellowship of the Ring", "J.R.R. Tolkien")
	rings.CreatedAt = time.Now().Add(-time.Hour)

	dune := testBook("book-3", "vol-dune", "Dune", "Frank Herbert")
	dune.CreatedAt = time.Now()

	require.NoError(t, index.IndexBooks([]*domain.Book{hobbit, rings, dune}))
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_OnDisk(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexBook(testBook("book-1", "vol-1", "Persisted")))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_IndexBook_Replaces(t *testing.T) {
	index := setupTestIndex(t)

	book := testBook("book-1", "vol-1", "First Title")
	require.NoError(t, index.IndexBook(book))
	book.Title = "Second Title"
	require.NoError(t, index.IndexBook(book))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index.Search(context.Background(), SearchParams{Query: "second"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Second Title", result.Hits[0].Title)
}

func TestSearch_ByTitleAndAuthor(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	ctx := context.Background()

	result, err := index.Search(ctx, SearchParams{Query: "hobbit"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "vol-hobbit", result.Hits[0].GoogleID)
	assert.Equal(t, "J.R.R. Tolkien", result.Hits[0].Authors)

	result, err = index.Search(ctx, SearchParams{Query: "herbert"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Dune", result.Hits[0].Title)
}

func TestSearch_Fuzzy(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "dume"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-3", result.Hits[0].ID)
}

func TestSearch_ISBN(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "978-0-261-10221-7"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearch_SentinelsNotIndexed(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBook(testBook("book-1", "vol-1", "Anonymous")))

	result, err := index.Search(context.Background(), SearchParams{Query: "unknown"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	result, err = index.Search(context.Background(), SearchParams{Query: "description available"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{SortBy: SortTitle})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "Dune", result.Hits[0].Title)
	assert.Equal(t, "The Fellowship of the Ring", result.Hits[1].Title)
	assert.Equal(t, "The Hobbit", result.Hits[2].Title)
}

func TestSearch_SortRecent(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{SortBy: SortRecent})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	assert.Equal(t, "book-3", result.Hits[0].ID)
	assert.Equal(t, "book-1", result.Hits[2].ID)
}

func TestSearch_Pagination(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)
	ctx := context.Background()

	page1, err := index.Search(ctx, SearchParams{SortBy: SortTitle, Limit: 2})
	require.NoError(t, err)
	page2, err := index.Search(ctx, SearchParams{SortBy: SortTitle, Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Len(t, page1.Hits, 2)
	require.Len(t, page2.Hits, 1)
	assert.Equal(t, "The Hobbit", page2.Hits[0].Title)
}

func TestSearch_AuthorFilterAndFacets(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{
		Author:        "J.R.R. Tolkien",
		IncludeFacets: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	require.Len(t, result.Facets, 1)
	assert.Equal(t, FacetCount{Value: "J.R.R. Tolkien", Count: 2}, result.Facets[0])
}

func TestSearch_Highlight(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "hobbit", Highlight: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Contains(t, result.Hits[0].Highlights["title"], "<mark>Hobbit</mark>")
}

func TestDeleteBook(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	require.NoError(t, index.DeleteBook("book-3"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	seedIndex(t, index)

	require.NoError(t, index.Rebuild([]*domain.Book{testBook("book-9", "vol-9", "Only One")}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := index.Search(context.Background(), SearchParams{Query: "hobbit"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestBookDocument(t *testing.T) {
	book := testBook("book-1", "vol-1", "Title", "A", domain.UnknownAuthor)
	book.ISBN = "9780000000001"

	doc := BookDocument(book)
	assert.Equal(t, []string{"A"}, doc.Authors)
	assert.Empty(t, doc.Description)
	assert.Equal(t, "9780000000001", doc.ISBN)

	m := doc.ToMap()
	assert.Equal(t, "title", m["title_sort"])
	assert.Equal(t, "A", m["authors"])

	_, hasISBN := BookDocument(testBook("book-2", "vol-2", "No ISBN")).ToMap()["isbn"]
	assert.False(t, hasISBN)
}
