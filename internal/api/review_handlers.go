package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submitReview",
		Method:        http.MethodPost,
		Path:          "/api/reviews",
		Summary:       "Submit review",
		Description:   "Creates the caller's review of a book (201) or updates their existing one (200). Unknown books are registered from the catalog.",
		Tags:          []string{"Reviews"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
		Middlewares:   huma.Middlewares{s.requireAuth, s.rateLimit(s.limits.review)},
	}, s.handleSubmitReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/reviews/book/{googleId}",
		Summary:     "List reviews of a book",
		Description: "Returns the reviews of a book, newest first, with their authors. Unknown books have no reviews.",
		Tags:        []string{"Reviews"},
	}, s.handleListBookReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReviews",
		Method:      http.MethodGet,
		Path:        "/api/reviews/user/{userId}",
		Summary:     "List reviews by a user",
		Description: "Returns a user's reviews, newest first, with their books. Only the user and admins may list them.",
		Tags:        []string{"Reviews"},
		Security:    bearerSecurity,
		Middlewares: huma.Middlewares{s.requireAuth},
	}, s.handleListUserReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReview",
		Method:      http.MethodDelete,
		Path:        "/api/reviews/{reviewId}",
		Summary:     "Delete review",
		Description: "Deletes a review. Only its author and admins may delete it.",
		Tags:        []string{"Reviews"},
		Security:    bearerSecurity,
		Middlewares: huma.Middlewares{s.requireAuth},
	}, s.handleDeleteReview)
}

// === DTOs ===

// SubmitReviewRequest is the request body for a review. Rating accepts a
// number or a numeric string; presence and range are checked by the service
// so that messages come out in a fixed order.
type SubmitReviewRequest struct {
	_      struct{} `json:"-" additionalProperties:"true"`
	Text   string   `json:"text,omitempty" doc:"Review text, at least 3 characters"`
	Rating any      `json:"rating,omitempty" doc:"Whole number from 1 to 5"`
	BookID string   `json:"bookId,omitempty" doc:"Catalog volume ID of the reviewed book"`
}

// SubmitReviewInput wraps the review request for Huma.
type SubmitReviewInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Body          SubmitReviewRequest
}

// ReviewResponse is a stored review.
type ReviewResponse struct {
	ID        string    `json:"id" doc:"Review ID"`
	Text      string    `json:"text" doc:"Review text"`
	Rating    int       `json:"rating" doc:"Rating from 1 to 5"`
	BookID    string    `json:"bookId" doc:"Book ID"`
	UserID    string    `json:"userId" doc:"Author user ID"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time `json:"updatedAt" doc:"Last update time"`
	Message   string    `json:"message,omitempty" doc:"Present when an existing review was updated"`
}

// ReviewOutput wraps the review response; Status is 201 or 200.
type ReviewOutput struct {
	Status int
	Body   ReviewResponse
}

// ReviewAuthorResponse is the author joined onto book reviews.
type ReviewAuthorResponse struct {
	ID         string `json:"id" doc:"User ID"`
	Username   string `json:"username" doc:"Display name"`
	ProfilePic string `json:"profilePic,omitempty" doc:"Profile picture URL"`
}

// BookReviewResponse is a review listed for a book.
type BookReviewResponse struct {
	ID        string               `json:"id" doc:"Review ID"`
	Text      string               `json:"text" doc:"Review text"`
	Rating    int                  `json:"rating" doc:"Rating from 1 to 5"`
	BookID    string               `json:"bookId" doc:"Book ID"`
	UserID    ReviewAuthorResponse `json:"userId" doc:"Author"`
	CreatedAt time.Time            `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time            `json:"updatedAt" doc:"Last update time"`
}

// ListBookReviewsInput identifies a book by catalog ID.
type ListBookReviewsInput struct {
	GoogleID string `path:"googleId" doc:"Catalog volume ID"`
}

// BookReviewsOutput wraps the book review list for Huma.
type BookReviewsOutput struct {
	Body []BookReviewResponse
}

// ReviewedBookResponse is the book joined onto user reviews.
type ReviewedBookResponse struct {
	ID         string `json:"id" doc:"Book ID"`
	GoogleID   string `json:"googleId" doc:"Catalog volume ID"`
	Title      string `json:"title" doc:"Title"`
	CoverImage string `json:"coverImage" doc:"Cover thumbnail URL"`
}

// UserReviewResponse is a review listed for a user.
type UserReviewResponse struct {
	ID        string               `json:"id" doc:"Review ID"`
	Text      string               `json:"text" doc:"Review text"`
	Rating    int                  `json:"rating" doc:"Rating from 1 to 5"`
	BookID    ReviewedBookResponse `json:"bookId" doc:"Reviewed book"`
	UserID    string               `json:"userId" doc:"Author user ID"`
	CreatedAt time.Time            `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time            `json:"updatedAt" doc:"Last update time"`
}

// ListUserReviewsInput identifies a user.
type ListUserReviewsInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	UserID        string `path:"userId" doc:"User ID"`
}

// UserReviewsOutput wraps the user review list for Huma.
type UserReviewsOutput struct {
	Body []UserReviewResponse
}

// DeleteReviewInput identifies a review.
type DeleteReviewInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	ReviewID      string `path:"reviewId" doc:"Review ID"`
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleSubmitReview(ctx context.Context, input *SubmitReviewInput) (*ReviewOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Review.Submit(ctx, caller, service.SubmitReviewRequest{
		Text:   input.Body.Text,
		Rating: parseRating(input.Body.Rating),
		BookID: input.Body.BookID,
	})
	if err != nil {
		return nil, err
	}

	out := &ReviewOutput{Status: http.StatusCreated, Body: reviewResponse(result.Review)}
	if !result.Created {
		out.Status = http.StatusOK
		out.Body.Message = "Review updated successfully"
	}
	return out, nil
}

func (s *Server) handleListBookReviews(ctx context.Context, input *ListBookReviewsInput) (*BookReviewsOutput, error) {
	reviews, err := s.services.Review.ListByBook(ctx, input.GoogleID)
	if err != nil {
		return nil, err
	}

	body := make([]BookReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		body = append(body, BookReviewResponse{
			ID:     r.ID,
			Text:   r.Text,
			Rating: r.Rating,
			BookID: r.BookID,
			UserID: ReviewAuthorResponse{
				ID:         r.Author.ID,
				Username:   r.Author.Username,
				ProfilePic: r.Author.ProfilePic,
			},
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return &BookReviewsOutput{Body: body}, nil
}

func (s *Server) handleListUserReviews(ctx context.Context, input *ListUserReviewsInput) (*UserReviewsOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	reviews, err := s.services.Review.ListByUser(ctx, caller, input.UserID)
	if err != nil {
		return nil, err
	}

	body := make([]UserReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		body = append(body, UserReviewResponse{
			ID:     r.ID,
			Text:   r.Text,
			Rating: r.Rating,
			BookID: ReviewedBookResponse{
				ID:         r.Book.ID,
				GoogleID:   r.Book.GoogleID,
				Title:      r.Book.Title,
				CoverImage: r.Book.CoverImage,
			},
			UserID:    r.UserID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return &UserReviewsOutput{Body: body}, nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *DeleteReviewInput) (*MessageOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Review.Delete(ctx, caller, input.ReviewID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Review deleted successfully"}}, nil
}

func reviewResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		Text:      r.Text,
		Rating:    r.Rating,
		BookID:    r.BookID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// parseRating converts a decoded JSON rating to a number. Missing values
// become 0 and anything non-numeric becomes NaN, which the range check rejects.
func parseRating(v any) float64 {
	switch r := v.(type) {
	case nil:
		return 0
	case float64:
		return r
	case string:
		s := strings.TrimSpace(r)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
