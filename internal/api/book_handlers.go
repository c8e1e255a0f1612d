package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	limit := huma.Middlewares{s.rateLimit(s.limits.search)}

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/books",
		Summary:     "Search the book catalog",
		Description: "Relays a free-text search to Google Books and returns its response unchanged",
		Tags:        []string{"Books"},
		Middlewares: limit,
	}, s.handleSearchCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchReviewedBooks",
		Method:      http.MethodGet,
		Path:        "/api/books/reviewed",
		Summary:     "Search reviewed books",
		Description: "Searches books that have at least once been reviewed here, with their rating summary",
		Tags:        []string{"Books"},
		Middlewares: limit,
	}, s.handleSearchReviewed)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/books/{googleId}",
		Summary:     "Get book",
		Description: "Returns a registered book with its review count and average rating",
		Tags:        []string{"Books"},
		Middlewares: limit,
	}, s.handleGetBook)
}

// === DTOs ===

// SearchCatalogInput contains the catalog query.
type SearchCatalogInput struct {
	Query string `query:"q" doc:"Free-text catalog query"`
}

// CatalogOutput relays the catalog response body.
type CatalogOutput struct {
	Body map[string]any
}

// SearchReviewedInput contains local search parameters.
type SearchReviewedInput struct {
	Query  string `query:"q" doc:"Title, author, description or ISBN; empty matches all"`
	Author string `query:"author" doc:"Exact author name filter"`
	Sort   string `query:"sort" doc:"relevance, title or recent"`
	Limit  int    `query:"limit" doc:"Page size (default 20, max 100)"`
	Offset int    `query:"offset" doc:"Results to skip"`
}

// BookResponse is a registered book with its rating summary.
type BookResponse struct {
	ID            string    `json:"id" doc:"Book ID"`
	GoogleID      string    `json:"googleId" doc:"Catalog volume ID"`
	Title         string    `json:"title" doc:"Title"`
	Authors       []string  `json:"authors" doc:"Authors"`
	Description   string    `json:"description" doc:"Description in Markdown"`
	CoverImage    string    `json:"coverImage" doc:"Cover thumbnail URL"`
	CoverBlurHash string    `json:"coverBlurHash,omitempty" doc:"BlurHash placeholder for the cover"`
	ISBN          string    `json:"isbn" doc:"ISBN-13 or N/A"`
	ReviewCount   int       `json:"reviewCount" doc:"Number of reviews"`
	AverageRating float64   `json:"averageRating" doc:"Mean rating, 0 without reviews"`
	Score         float64   `json:"score,omitempty" doc:"Search relevance"`
	CreatedAt     time.Time `json:"createdAt" doc:"Registration time"`
}

// AuthorFacet counts matching books per author.
type AuthorFacet struct {
	Name  string `json:"name" doc:"Author"`
	Count int    `json:"count" doc:"Matching books"`
}

// ReviewedBooksResponse is one page of reviewed books.
type ReviewedBooksResponse struct {
	Total   uint64         `json:"total" doc:"Total matches"`
	Books   []BookResponse `json:"books" doc:"Matching books"`
	Authors []AuthorFacet  `json:"authors" doc:"Top authors among matches"`
}

// ReviewedBooksOutput wraps the reviewed books response for Huma.
type ReviewedBooksOutput struct {
	Body ReviewedBooksResponse
}

// GetBookInput identifies a book by catalog ID.
type GetBookInput struct {
	GoogleID string `path:"googleId" doc:"Catalog volume ID"`
}

// BookOutput wraps the book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// === Handlers ===

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*CatalogOutput, error) {
	body, err := s.services.Catalog.Search(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	return &CatalogOutput{Body: body}, nil
}

func (s *Server) handleSearchReviewed(ctx context.Context, input *SearchReviewedInput) (*ReviewedBooksOutput, error) {
	page, err := s.services.Catalog.SearchReviewed(ctx, service.ReviewedQuery{
		Query:  input.Query,
		Author: input.Author,
		Sort:   input.Sort,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	resp := ReviewedBooksResponse{
		Total:   page.Total,
		Books:   make([]BookResponse, 0, len(page.Books)),
		Authors: make([]AuthorFacet, 0, len(page.Authors)),
	}
	for _, hit := range page.Books {
		b := bookResponse(hit.Book, hit.Stats)
		b.Score = hit.Score
		resp.Books = append(resp.Books, b)
	}
	for _, f := range page.Authors {
		resp.Authors = append(resp.Authors, AuthorFacet{Name: f.Value, Count: f.Count})
	}

	return &ReviewedBooksOutput{Body: resp}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, stats, err := s.services.Book.Get(ctx, input.GoogleID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: bookResponse(book, stats)}, nil
}

func bookResponse(b *domain.Book, stats domain.BookStats) BookResponse {
	return BookResponse{
		ID:            b.ID,
		GoogleID:      b.GoogleID,
		Title:         b.Title,
		Authors:       b.Authors,
		Description:   b.Description,
		CoverImage:    b.CoverImage,
		CoverBlurHash: b.CoverBlurHash,
		ISBN:          b.ISBN,
		ReviewCount:   stats.ReviewCount,
		AverageRating: stats.AverageRating,
		CreatedAt:     b.CreatedAt,
	}
}
