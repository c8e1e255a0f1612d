// Package service holds the ShelfNotes business logic: sign-in, catalog
// search, book registration and reviews.
//
// Services return *errors.Error values for every client-visible failure;
// anything else reaching the API layer is reported as an internal error.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shelfnotes/shelfnotes-server/internal/auth"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/metadata/googlebooks"
)

var tracer = otel.Tracer("github.com/shelfnotes/shelfnotes-server/internal/service")

// IdentityVerifier verifies identity provider tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.GoogleIdentity, error)
}

// Catalog is the external book catalog.
type Catalog interface {
	Search(ctx context.Context, query string) (*googlebooks.SearchResult, error)
	GetVolume(ctx context.Context, id string) (*googlebooks.Volume, error)
}

// CoverHasher computes a BlurHash placeholder for a cover image URL.
type CoverHasher interface {
	FromURL(ctx context.Context, url string) (string, error)
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID   string
	Username string
	Email    string
	IsAdmin  bool
}

// CanManage reports whether the caller may read or delete resources owned by ownerID.
func (c Caller) CanManage(ownerID string) bool {
	return c.UserID == ownerID || c.IsAdmin
}

// internal logs err and returns a client-safe internal error carrying it as cause.
func internal(ctx context.Context, logger *slog.Logger, msg string, err error) error {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if logger != nil {
		logger.ErrorContext(ctx, msg, "error", err)
	}
	return domainerrors.Internal(msg).WithCause(err)
}

// fail marks the span as failed and passes err through.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
