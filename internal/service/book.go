package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/deppfellow/bookshelf/internal/sqlerr"
	"github.com/deppfellow/bookshelf/internal/validation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	codeBookNotFound        = "BOOK_NOT_FOUND"
	codeBookAmbiguousLookup = "BOOK_AMBIGUOUS_LOOKUP"
	codeBookEmptyLookup     = "BOOK_EMPTY_LOOKUP"
	codeBookInvalid         = "BOOK_INVALID"
)

// BookStore is the persistence the service needs.
type BookStore interface {
	Create(ctx context.Context, b *model.Book) error
	Get(ctx context.Context, lookup model.BookLookup) (*model.Book, error)
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	All(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	Count(ctx context.Context, filter model.BookFilter) (int64, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
}

// BookCache caches books by id. Get returns (nil, nil) on a miss.
type BookCache interface {
	Get(ctx context.Context, id int64) (*model.Book, error)
	Set(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
}

// BookNotifier is told about every created book.
type BookNotifier interface {
	NotifyBookAdded(ctx context.Context, b model.Book) error
}

// BookService holds the rules around the book record store.
type BookService struct {
	logger   *zerolog.Logger
	store    BookStore
	cache    BookCache
	notifier BookNotifier
	now      func() time.Time
}

// BookOption configures optional BookService collaborators.
type BookOption func(*BookService)

// WithCache enables read-through caching of single books.
func WithCache(c BookCache) BookOption {
	return func(s *BookService) { s.cache = c }
}

// WithNotifier announces created books to n.
func WithNotifier(n BookNotifier) BookOption {
	return func(s *BookService) { s.notifier = n }
}

// WithClock replaces time.Now when checking publication years.
func WithClock(now func() time.Time) BookOption {
	return func(s *BookService) { s.now = now }
}

// NewBookService builds the service over store.
//
// Without options the service has no cache, no notifier and uses
// time.Now for the publication year check. NewService adds the Redis
// cache and the Asynq notifier when Redis is configured.
func NewBookService(logger *zerolog.Logger, store BookStore, opts ...BookOption) *BookService {
	s := &BookService{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateBook validates and stores a new book built from title, author and
// publication year. ID and timestamps of in are ignored.
func (s *BookService) CreateBook(ctx context.Context, in model.Book) (*model.Book, error) {
	book := &model.Book{
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		PublicationYear: in.PublicationYear,
	}

	if err := s.validate(book); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, book); err != nil {
		return nil, s.mapError(err)
	}

	s.logger.Info().
		Int64("book_id", book.ID).
		Str("title", book.Title).
		Msg("book created")

	if s.notifier != nil {
		if err := s.notifier.NotifyBookAdded(ctx, *book); err != nil {
			s.logger.Warn().Err(err).Int64("book_id", book.ID).Msg("failed to announce new book")
		}
	}

	return book, nil
}

// GetBook returns the book with id, from the cache when possible.
func (s *BookService) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Int64("book_id", id).Msg("book cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	book, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, book); err != nil {
			s.logger.Warn().Err(err).Int64("book_id", id).Msg("book cache write failed")
		}
	}

	return book, nil
}

// LookupBook returns the single book matching every set criterion.
func (s *BookService) LookupBook(ctx context.Context, lookup model.BookLookup) (*model.Book, error) {
	book, err := s.store.Get(ctx, lookup)
	if err != nil {
		return nil, s.mapError(err)
	}

	return book, nil
}

// ListBooks returns the books matching filter.
func (s *BookService) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	books, err := s.store.All(ctx, filter)
	if err != nil {
		return nil, s.mapError(err)
	}

	return books, nil
}

// CountBooks returns how many books match filter.
func (s *BookService) CountBooks(ctx context.Context, filter model.BookFilter) (int64, error) {
	n, err := s.store.Count(ctx, filter)
	if err != nil {
		return 0, s.mapError(err)
	}

	return n, nil
}

// UpdateBook retrieves book id, applies patch and persists the result.
func (s *BookService) UpdateBook(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	book, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	patch.Apply(book)
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)

	if err := s.validate(book); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, book); err != nil {
		return nil, s.mapError(err)
	}

	s.evict(ctx, id)

	s.logger.Info().Int64("book_id", id).Msg("book updated")

	return book, nil
}

// DeleteBook removes book id.
func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}

	s.evict(ctx, id)

	s.logger.Info().Int64("book_id", id).Msg("book deleted")

	return nil
}

func (s *BookService) evict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("book_id", id).Msg("book cache eviction failed")
	}
}

// validate checks the field rules a stored book must satisfy.
func (s *BookService) validate(b *model.Book) error {
	fieldErrors := validation.FieldErrors(b)

	if currentYear := s.now().UTC().Year(); b.PublicationYear > currentYear {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: "publication_year",
			Error: fmt.Sprintf("Publication year cannot be in the future. Current year is %d.", currentYear),
		})
	}

	if len(fieldErrors) > 0 {
		return errs.NewBadRequestError("Validation failed", true, &codeBookInvalid, fieldErrors, nil)
	}

	return nil
}

// mapError converts store errors into API errors.
func (s *BookService) mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrBookNotFound):
		return errs.NewNotFoundError("Book not found", true, &codeBookNotFound)
	case errors.Is(err, repository.ErrMultipleBooks):
		return errs.NewConflictError("More than one book matches the lookup", true, &codeBookAmbiguousLookup)
	case errors.Is(err, repository.ErrEmptyLookup):
		return errs.NewBadRequestError("At least one lookup criterion is required", true, &codeBookEmptyLookup, nil, nil)
	}

	s.logger.Error().Stack().Err(err).Msg("book store operation failed")

	return sqlerr.HandleError(err)
}
