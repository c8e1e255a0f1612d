package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
)

// Sort orders accepted in SearchParams.SortBy.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortRecent    = "recent"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query  string // User's search query; empty matches every book
	Author string // Exact author filter

	Limit  int
	Offset int

	SortBy string // SortRelevance, SortTitle or SortRecent

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		SortBy:    SortRelevance,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets []FacetCount `json:"facets,omitempty"`
}

// SearchHit is a single matching book.
type SearchHit struct {
	ID         string            `json:"id"`
	GoogleID   string            `json:"google_id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Authors    string            `json:"authors,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// FacetCount is an author and the number of matching books.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("author_facet", bleve.NewFacetRequest("author_facet", 20))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("authors")
	}

	searchRequest.Fields = []string{"google_id", "title", "authors"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if g, ok := hit.Fields["google_id"].(string); ok {
			searchHit.GoogleID = g
		}
		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if a, ok := hit.Fields["authors"].(string); ok {
			searchHit.Authors = a
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	if facet, ok := searchResult.Facets["author_facet"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Facets = append(result.Facets, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("authors")
		authorMatch.SetBoost(2.0)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)

		// Typo tolerance on the title
		fuzzyMatch := bleve.NewMatchQuery(q)
		fuzzyMatch.SetField("title")
		fuzzyMatch.SetFuzziness(1)
		fuzzyMatch.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, authorMatch, descMatch, fuzzyMatch}

		// Prefix on the folded title for as-you-type search (minimum 2 chars)
		if folded := normalize.Fold(q); len(folded) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(folded)
			prefixQuery.SetField("title_sort")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		if isbn := normalize.ISBN(q); len(isbn) == 10 || len(isbn) == 13 {
			isbnQuery := bleve.NewTermQuery(isbn)
			isbnQuery.SetField("isbn")
			isbnQuery.SetBoost(5.0)
			textQueries = append(textQueries, isbnQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Author != "" {
		authorFilter := bleve.NewTermQuery(params.Author)
		authorFilter.SetField("author_facet")
		queries = append(queries, authorFilter)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case SortTitle:
		req.SortBy([]string{"title_sort", "_id"})
	case SortRecent:
		req.SortBy([]string{"-created_at", "_id"})
	default:
		req.SortBy([]string{"-_score", "title_sort"})
	}
}
