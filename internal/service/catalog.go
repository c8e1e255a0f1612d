package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/search"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// Client-visible catalog messages.
const (
	msgQueryRequired  = "Query parameter is required"
	msgNoBooksFound   = "No books found for the given query"
	msgCatalogFailed  = "Error fetching books"
	msgSearchDisabled = "Search of reviewed books is not enabled"
	msgSearchFailed   = "Error searching reviewed books"
)

// Page size bounds for SearchReviewed.
const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// CatalogService proxies catalog searches and searches the books that have
// been registered locally.
type CatalogService struct {
	catalog Catalog
	index   *search.SearchIndex // nil when local search is disabled
	store   store.Store
	logger  *slog.Logger
}

// NewCatalogService creates a catalog service. index may be nil.
func NewCatalogService(catalog Catalog, index *search.SearchIndex, store store.Store, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CatalogService{
		catalog: catalog,
		index:   index,
		store:   store,
		logger:  logger,
	}
}

// Search forwards query to the catalog and returns its response body
// unchanged. Nothing is persisted.
func (s *CatalogService) Search(ctx context.Context, query string) (map[string]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.Validation(msgQueryRequired)
	}

	ctx, span := tracer.Start(ctx, "CatalogService.Search")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.query", query))

	result, err := s.catalog.Search(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog search failed", "query", query, "error", err)
		return nil, fail(span, domainerrors.Upstream(msgCatalogFailed).WithCause(err))
	}

	span.SetAttributes(attribute.Int("catalog.items", result.ItemCount))
	if result.ItemCount == 0 {
		return nil, domainerrors.NotFound(msgNoBooksFound)
	}
	return result.Raw, nil
}

// ReviewedQuery selects registered books.
type ReviewedQuery struct {
	Query  string
	Author string
	Sort   string
	Limit  int
	Offset int
}

// BookHit is a registered book matching a ReviewedQuery.
type BookHit struct {
	Book  *domain.Book
	Stats domain.BookStats
	Score float64
}

// ReviewedPage is one page of ReviewedQuery results.
type ReviewedPage struct {
	Total   uint64
	Books   []BookHit
	Authors []search.FacetCount
}

// SearchReviewed searches the local index of registered books and attaches
// each book's review statistics.
func (s *CatalogService) SearchReviewed(ctx context.Context, q ReviewedQuery) (*ReviewedPage, error) {
	if s.index == nil {
		return nil, domainerrors.NotFound(msgSearchDisabled)
	}

	ctx, span := tracer.Start(ctx, "CatalogService.SearchReviewed")
	defer span.End()

	params := search.DefaultSearchParams()
	params.Query = strings.TrimSpace(q.Query)
	params.Author = strings.TrimSpace(q.Author)
	params.Offset = max(q.Offset, 0)
	params.IncludeFacets = true
	params.Highlight = false
	switch {
	case q.Limit <= 0:
		params.Limit = defaultSearchLimit
	case q.Limit > maxSearchLimit:
		params.Limit = maxSearchLimit
	default:
		params.Limit = q.Limit
	}
	switch q.Sort {
	case "", search.SortRelevance, search.SortTitle, search.SortRecent:
		if q.Sort != "" {
			params.SortBy = q.Sort
		}
	default:
		return nil, domainerrors.Validationf("sort must be one of %s, %s, %s",
			search.SortRelevance, search.SortTitle, search.SortRecent)
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, internal(ctx, s.logger, msgSearchFailed, err)
	}

	page := &ReviewedPage{
		Total:   result.Total,
		Books:   make([]BookHit, 0, len(result.Hits)),
		Authors: result.Facets,
	}
	for _, hit := range result.Hits {
		book, err := s.store.GetBook(ctx, hit.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Stale index entry.
			s.logger.WarnContext(ctx, "search hit has no book", "book_id", hit.ID)
			continue
		}
		if err != nil {
			return nil, internal(ctx, s.logger, msgSearchFailed, err)
		}
		stats, err := s.store.GetBookStats(ctx, book.ID)
		if err != nil {
			return nil, internal(ctx, s.logger, msgSearchFailed, err)
		}
		page.Books = append(page.Books, BookHit{Book: book, Stats: stats, Score: hit.Score})
	}

	return page, nil
}
