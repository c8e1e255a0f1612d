package domain

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// MinReviewLength is the minimum review length after trimming whitespace.
const MinReviewLength = 3

// Review is one user's rating and text for one book.
// A user has at most one review per book.
type Review struct {
	Record
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// ReviewAuthor is the author summary joined onto reviews listed for a book.
type ReviewAuthor struct {
	ID         string
	Username   string
	ProfilePic string
}

// ReviewedBook is the book summary joined onto reviews listed for a user.
type ReviewedBook struct {
	ID         string
	GoogleID   string
	Title      string
	CoverImage string
}

// BookReview is a review with its author.
type BookReview struct {
	Review
	Author ReviewAuthor
}

// UserReview is a review with its book.
type UserReview struct {
	Review
	Book ReviewedBook
}
