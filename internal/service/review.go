package service

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/id"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/validation"
)

// Client-visible review messages.
const (
	msgReviewFieldsRequired = "Text, rating, and bookId are required"
	msgRatingInvalid        = "Rating must be an integer between 1 and 5"
	msgReviewTooShort       = "Review text is too short"
	msgReviewNotFound       = "Review not found"
	msgReviewsForbidden     = "Unauthorized to access these reviews"
	msgDeleteForbidden      = "You are not authorized to delete this review"
	msgReviewSaveFailed     = "Error creating review"
	msgReviewsLoadFailed    = "Error fetching reviews"
	msgReviewDeleteFailed   = "Error deleting review"
)

// ratingRule accepts whole numbers from domain.MinRating to domain.MaxRating.
const ratingRule = "integral,gte=1,lte=5"

// ReviewService creates, lists and deletes reviews.
type ReviewService struct {
	store    store.Store
	books    *BookService
	validate *validation.Validator
	logger   *slog.Logger
}

// NewReviewService creates a review service.
func NewReviewService(store store.Store, books *BookService, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReviewService{
		store:    store,
		books:    books,
		validate: validation.New(),
		logger:   logger,
	}
}

// SubmitReviewRequest is a review as sent by the client. Rating is a float so
// that fractional values can be rejected rather than truncated; zero counts
// as missing.
type SubmitReviewRequest struct {
	Text   string  `json:"text" validate:"required"`
	Rating float64 `json:"rating" validate:"required"`
	BookID string  `json:"bookId" validate:"required"`
}

// ReviewResult is the stored review and whether it was newly created.
type ReviewResult struct {
	Review  *domain.Review
	Created bool
}

// Submit creates the caller's review of a book, or overwrites the text and
// rating of their existing one. The book is registered from the catalog if
// needed. Nothing is written unless every check passes.
func (s *ReviewService) Submit(ctx context.Context, caller Caller, req SubmitReviewRequest) (*ReviewResult, error) {
	if err := s.validate.Check(req, msgReviewFieldsRequired); err != nil {
		return nil, err
	}
	if err := s.validate.CheckVar(req.Rating, ratingRule, msgRatingInvalid); err != nil {
		return nil, err
	}
	text := normalize.Multiline(req.Text)
	if utf8.RuneCountInString(text) < domain.MinReviewLength {
		return nil, domainerrors.Validation(msgReviewTooShort)
	}

	ctx, span := tracer.Start(ctx, "ReviewService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", caller.UserID),
		attribute.String("book.google_id", req.BookID),
	)

	book, err := s.books.FindOrCreate(ctx, req.BookID)
	if err != nil {
		return nil, fail(span, err)
	}

	review := &domain.Review{
		Record: domain.Record{ID: id.MustGenerate(id.PrefixReview)},
		UserID: caller.UserID,
		BookID: book.ID,
		Text:   text,
		Rating: int(req.Rating),
	}
	review.InitTimestamps()

	stored, created, err := s.store.UpsertReview(ctx, review)
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return nil, fail(span, domainerrors.Validation(msgRatingInvalid).WithCause(err))
	case err != nil:
		return nil, internal(ctx, s.logger, msgReviewSaveFailed, err)
	}

	span.SetAttributes(attribute.Bool("review.created", created))
	s.logger.InfoContext(ctx, "review saved",
		"review_id", stored.ID,
		"book_id", book.ID,
		"user_id", caller.UserID,
		"created", created,
	)

	return &ReviewResult{Review: stored, Created: created}, nil
}

// ListByBook returns the reviews of the book with the given catalog id,
// newest first. An unknown book has no reviews.
func (s *ReviewService) ListByBook(ctx context.Context, googleID string) ([]*domain.BookReview, error) {
	book, err := s.store.GetBookByGoogleID(ctx, googleID)
	if errors.Is(err, store.ErrNotFound) {
		return []*domain.BookReview{}, nil
	}
	if err != nil {
		return nil, internal(ctx, s.logger, msgReviewsLoadFailed, err)
	}

	reviews, err := s.store.ListReviewsByBook(ctx, book.ID)
	if err != nil {
		return nil, internal(ctx, s.logger, msgReviewsLoadFailed, err)
	}
	return reviews, nil
}

// ListByUser returns a user's reviews, newest first. Only the user and
// admins may list them.
func (s *ReviewService) ListByUser(ctx context.Context, caller Caller, userID string) ([]*domain.UserReview, error) {
	if !caller.CanManage(userID) {
		return nil, domainerrors.Forbidden(msgReviewsForbidden)
	}

	reviews, err := s.store.ListReviewsByUser(ctx, userID)
	if err != nil {
		return nil, internal(ctx, s.logger, msgReviewsLoadFailed, err)
	}
	return reviews, nil
}

// Delete removes a review and its references. Only the author and admins may
// delete it.
func (s *ReviewService) Delete(ctx context.Context, caller Caller, reviewID string) error {
	ctx, span := tracer.Start(ctx, "ReviewService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("review.id", reviewID))

	review, err := s.store.GetReview(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound(msgReviewNotFound)
	}
	if err != nil {
		return internal(ctx, s.logger, msgReviewDeleteFailed, err)
	}

	if !caller.CanManage(review.UserID) {
		s.logger.WarnContext(ctx, "review delete denied", "review_id", reviewID, "user_id", caller.UserID)
		return fail(span, domainerrors.Forbidden(msgDeleteForbidden))
	}

	err = s.store.DeleteReview(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted concurrently.
		return domainerrors.NotFound(msgReviewNotFound)
	}
	if err != nil {
		return internal(ctx, s.logger, msgReviewDeleteFailed, err)
	}

	s.logger.InfoContext(ctx, "review deleted", "review_id", reviewID, "by", caller.UserID)
	return nil
}
