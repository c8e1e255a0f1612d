package domain

// Sentinel values stored when the catalog omits a field.
const (
	UnknownAuthor = "Unknown"
	NoDescription = "No description available"
	NoISBN        = "N/A"
)

// Book is the local mirror of a catalog volume that has been reviewed at least once.
// It is never modified after creation except for its review references.
type Book struct {
	Record
	GoogleID      string   `json:"google_id,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	CoverImage    string   `json:"cover_image"`
	CoverBlurHash string   `json:"cover_blurhash,omitempty"`
	ISBN          string   `json:"isbn"`

	// ReviewIDs lists reviews of this book, oldest first.
	ReviewIDs []string `json:"review_ids"`
}

// HasISBN reports whether the book carries a real ISBN rather than the sentinel.
func (b *Book) HasISBN() bool {
	return b.ISBN != "" && b.ISBN != NoISBN
}

// ApplyDefaults fills the sentinel values for missing catalog fields.
func (b *Book) ApplyDefaults() {
	if len(b.Authors) == 0 {
		b.Authors = []string{UnknownAuthor}
	}
	if b.Description == "" {
		b.Description = NoDescription
	}
	if b.ISBN == "" {
		b.ISBN = NoISBN
	}
}

// BookStats summarises the reviews of a book.
type BookStats struct {
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}
