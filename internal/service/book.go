package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/id"
	"github.com/shelfnotes/shelfnotes-server/internal/metadata/googlebooks"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
	"github.com/shelfnotes/shelfnotes-server/internal/search"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
)

// Client-visible book messages.
const (
	msgBookNotFound     = "Book not found"
	msgBookFetchFailed  = "Error fetching book details"
	msgBookISBNConflict = "A book with this ISBN is already registered"
)

// BookService registers catalog volumes as local books on first use.
type BookService struct {
	store   store.Store
	catalog Catalog
	covers  CoverHasher         // nil skips BlurHash computation
	index   *search.SearchIndex // nil when local search is disabled
	group   singleflight.Group
	logger  *slog.Logger
}

// NewBookService creates a book service. covers and index may be nil.
func NewBookService(
	store store.Store,
	catalog Catalog,
	covers CoverHasher,
	index *search.SearchIndex,
	logger *slog.Logger,
) *BookService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BookService{
		store:   store,
		catalog: catalog,
		covers:  covers,
		index:   index,
		logger:  logger,
	}
}

// FindOrCreate returns the local book for a catalog id, registering it from
// the catalog when it is not known yet.
//
// Registration is a single insert guarded by the unique catalog id. A caller
// that loses the race reads back the winner's book. Concurrent callers in this
// process share one catalog lookup.
func (s *BookService) FindOrCreate(ctx context.Context, googleID string) (*domain.Book, error) {
	googleID = strings.TrimSpace(googleID)
	if googleID == "" {
		return nil, domainerrors.NotFound(msgBookNotFound)
	}

	ctx, span := tracer.Start(ctx, "BookService.FindOrCreate")
	defer span.End()
	span.SetAttributes(attribute.String("book.google_id", googleID))

	book, err := s.store.GetBookByGoogleID(ctx, googleID)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, internal(ctx, s.logger, "Error loading book", err)
	}

	// The registration outlives a canceled leader so followers still get a result.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(googleID, func() (any, error) {
		return s.register(flightCtx, googleID)
	})
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Bool("book.shared_registration", shared))
	return v.(*domain.Book), nil
}

func (s *BookService) register(ctx context.Context, googleID string) (*domain.Book, error) {
	volume, err := s.catalog.GetVolume(ctx, googleID)
	if err != nil {
		if googlebooks.IsNotFound(err) {
			return nil, domainerrors.NotFound(msgBookNotFound).WithCause(err)
		}
		s.logger.ErrorContext(ctx, "catalog lookup failed", "google_id", googleID, "error", err)
		return nil, domainerrors.Upstream(msgBookFetchFailed).WithCause(err)
	}

	book := bookFromVolume(googleID, volume)

	if s.covers != nil && book.CoverImage != "" {
		hash, err := s.covers.FromURL(ctx, book.CoverImage)
		if err != nil {
			s.logger.WarnContext(ctx, "cover blurhash failed", "google_id", googleID, "error", err)
		} else {
			book.CoverBlurHash = hash
		}
	}

	err = s.store.CreateBook(ctx, book)
	if errors.Is(err, store.ErrAlreadyExists) {
		existing, gerr := s.store.GetBookByGoogleID(ctx, googleID)
		if gerr == nil {
			return existing, nil
		}
		if errors.Is(gerr, store.ErrNotFound) {
			// The catalog id is free, so the ISBN is taken by another volume.
			return nil, domainerrors.Conflict(msgBookISBNConflict).WithDetails(map[string]string{"isbn": book.ISBN})
		}
		return nil, internal(ctx, s.logger, "Error loading book", gerr)
	}
	if err != nil {
		return nil, internal(ctx, s.logger, "Error saving book", err)
	}

	s.logger.InfoContext(ctx, "book registered", "book_id", book.ID, "google_id", googleID, "title", book.Title)

	if s.index != nil {
		if err := s.index.IndexBook(book); err != nil {
			s.logger.WarnContext(ctx, "failed to index book", "book_id", book.ID, "error", err)
		}
	}

	return book, nil
}

// bookFromVolume maps a catalog volume onto a new Book, filling sentinels
// for missing fields.
func bookFromVolume(googleID string, volume *googlebooks.Volume) *domain.Book {
	info := volume.VolumeInfo

	book := &domain.Book{
		Record:      domain.Record{ID: id.MustGenerate(id.PrefixBook)},
		GoogleID:    googleID,
		Title:       normalize.Text(info.Title),
		Description: googlebooks.DescriptionMarkdown(info.Description),
		CoverImage:  strings.TrimSpace(info.Thumbnail()),
		ISBN:        normalize.ISBN(info.ISBN13()),
	}
	for _, a := range info.Authors {
		if a = normalize.Text(a); a != "" {
			book.Authors = append(book.Authors, a)
		}
	}
	book.ApplyDefaults()
	book.InitTimestamps()
	return book
}

// Get returns a registered book with its review statistics.
func (s *BookService) Get(ctx context.Context, googleID string) (*domain.Book, domain.BookStats, error) {
	book, err := s.store.GetBookByGoogleID(ctx, strings.TrimSpace(googleID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.BookStats{}, domainerrors.NotFound(msgBookNotFound)
	}
	if err != nil {
		return nil, domain.BookStats{}, internal(ctx, s.logger, "Error loading book", err)
	}

	stats, err := s.store.GetBookStats(ctx, book.ID)
	if err != nil {
		return nil, domain.BookStats{}, internal(ctx, s.logger, "Error loading book", err)
	}
	return book, stats, nil
}

// SyncIndex rebuilds the search index from the store when the number of
// indexed documents differs from the number of stored books.
func (s *BookService) SyncIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return err
	}
	count, err := s.index.DocumentCount()
	if err != nil {
		return err
	}
	if count == uint64(len(books)) {
		s.logger.DebugContext(ctx, "search index up to date", "books", len(books))
		return nil
	}

	s.logger.InfoContext(ctx, "rebuilding search index", "indexed", count, "books", len(books))
	return s.index.Rebuild(books)
}
