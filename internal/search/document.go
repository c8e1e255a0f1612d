// Package search provides full-text search over locally registered books
// using Bleve.
package search

import (
	"strings"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
)

// Document is the indexed form of a book.
type Document struct {
	ID          string   `json:"id"`
	GoogleID    string   `json:"google_id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description,omitempty"`
	ISBN        string   `json:"isbn,omitempty"`
	CreatedAt   int64    `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"google_id":  d.GoogleID,
		"title":      d.Title,
		"title_sort": normalize.Fold(d.Title),
		"created_at": d.CreatedAt,
	}

	if len(d.Authors) > 0 {
		m["authors"] = strings.Join(d.Authors, ", ")
		m["author_facet"] = d.Authors
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}

	return m
}

// BookDocument converts a domain Book to a Document.
// The sentinel author and ISBN values are left out so they never match.
func BookDocument(book *domain.Book) *Document {
	doc := &Document{
		ID:        book.ID,
		GoogleID:  book.GoogleID,
		Title:     book.Title,
		CreatedAt: book.CreatedAt.UnixMilli(),
	}

	for _, a := range book.Authors {
		if a != domain.UnknownAuthor {
			doc.Authors = append(doc.Authors, a)
		}
	}
	if book.Description != domain.NoDescription {
		doc.Description = book.Description
	}
	if book.HasISBN() {
		doc.ISBN = book.ISBN
	}

	return doc
}
