package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/bookshelf/internal/database"
	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu    sync.Mutex
	books map[int64]model.Book
	hits  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{books: map[int64]model.Book{}}
}

func (c *fakeCache) Get(_ context.Context, id int64) (*model.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books[id]
	if !ok {
		return nil, nil
	}
	c.hits++

	return &b, nil
}

func (c *fakeCache) Set(_ context.Context, b *model.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[b.ID] = *b

	return nil
}

func (c *fakeCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.books, id)

	return nil
}

type fakeNotifier struct {
	added []model.Book
	err   error
}

func (n *fakeNotifier) NotifyBookAdded(_ context.Context, b model.Book) error {
	n.added = append(n.added, b)
	return n.err
}

func newTestService(t *testing.T, opts ...BookOption) *BookService {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.OpenSQLite(database.MemoryPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewBookRepository(db.Adapter(), db.Dialect())

	return NewBookService(&logger, repo, opts...)
}

func requireHTTPError(t *testing.T, err error, status int) *errs.HTTPError {
	t.Helper()

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, status, httpErr.Status)

	return httpErr
}

func TestCRUDLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	before, err := svc.CountBooks(ctx, model.BookFilter{})
	require.NoError(t, err)

	created, err := svc.CreateBook(ctx, model.Book{Title: "1984", Author: "George Orwell", PublicationYear: 1949})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byTitle, err := svc.LookupBook(ctx, model.ByTitle("1984"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byTitle.ID)
	assert.Equal(t, "George Orwell", byTitle.Author)
	assert.Equal(t, 1949, byTitle.PublicationYear)

	title := "Nineteen Eighty-Four"
	_, err = svc.UpdateBook(ctx, created.ID, model.BookPatch{Title: &title})
	require.NoError(t, err)

	byID, err := svc.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, byID.Title)
	assert.Equal(t, "George Orwell", byID.Author)
	assert.Equal(t, 1949, byID.PublicationYear)

	require.NoError(t, svc.DeleteBook(ctx, created.ID))

	_, err = svc.LookupBook(ctx, model.ByTitle(title))
	httpErr := requireHTTPError(t, err, http.StatusNotFound)
	assert.Equal(t, "BOOK_NOT_FOUND", httpErr.Code)

	after, err := svc.CountBooks(ctx, model.BookFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreateBookValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return now }))

	t.Run("future year", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, model.Book{Title: "Tomorrow", Author: "Someone", PublicationYear: 2025})
		httpErr := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, []errs.FieldError{{
			Field: "publication_year",
			Error: "Publication year cannot be in the future. Current year is 2024.",
		}}, httpErr.Errors)
	})

	t.Run("current year is allowed", func(t *testing.T) {
		_, err := svc.CreateBook(ctx, model.Book{Title: "Today", Author: "Someone", PublicationYear: 2024})
		require.NoError(t, err)
	})

	t.Run("blank and too long fields", func(t *testing.T) {
		long := make([]rune, model.AuthorMaxLength+1)
		for i := range long {
			long[i] = 'é'
		}

		_, err := svc.CreateBook(ctx, model.Book{Title: "   ", Author: string(long), PublicationYear: 2000})
		httpErr := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, "BOOK_INVALID", httpErr.Code)
		assert.ElementsMatch(t, []errs.FieldError{
			{Field: "title", Error: "is required"},
			{Field: "author", Error: "must not exceed 100 characters"},
		}, httpErr.Errors)
	})

	t.Run("limits count characters not bytes", func(t *testing.T) {
		title := make([]rune, model.TitleMaxLength)
		for i := range title {
			title[i] = 'é'
		}

		_, err := svc.CreateBook(ctx, model.Book{Title: string(title), Author: "Someone", PublicationYear: 2000})
		require.NoError(t, err)
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		book, err := svc.CreateBook(ctx, model.Book{Title: "  Dune ", Author: " Frank Herbert", PublicationYear: 1965})
		require.NoError(t, err)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, "Frank Herbert", book.Author)
	})

	futureYear := 2025
	n, err := svc.CountBooks(ctx, model.BookFilter{PublicationYear: &futureYear})
	require.NoError(t, err)
	assert.Zero(t, n, "invalid books must not be stored")
}

func TestUpdateBookValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return now }))

	book, err := svc.CreateBook(ctx, model.Book{Title: "1984", Author: "George Orwell", PublicationYear: 1949})
	require.NoError(t, err)

	year := 3000
	_, err = svc.UpdateBook(ctx, book.ID, model.BookPatch{PublicationYear: &year})
	requireHTTPError(t, err, http.StatusBadRequest)

	stored, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1949, stored.PublicationYear)

	_, err = svc.UpdateBook(ctx, 999, model.BookPatch{PublicationYear: &year})
	requireHTTPError(t, err, http.StatusNotFound)
}

func TestLookupErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, title := range []string{"1984", "Animal Farm"} {
		_, err := svc.CreateBook(ctx, model.Book{Title: title, Author: "George Orwell", PublicationYear: 1945})
		require.NoError(t, err)
	}

	author := "George Orwell"
	_, err := svc.LookupBook(ctx, model.BookLookup{Author: &author})
	httpErr := requireHTTPError(t, err, http.StatusConflict)
	assert.Equal(t, "BOOK_AMBIGUOUS_LOOKUP", httpErr.Code)

	_, err = svc.LookupBook(ctx, model.BookLookup{})
	httpErr = requireHTTPError(t, err, http.StatusBadRequest)
	assert.Equal(t, "BOOK_EMPTY_LOOKUP", httpErr.Code)

	require.Error(t, svc.DeleteBook(ctx, 999))
}

func TestGetBookUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	svc := newTestService(t, WithCache(cache))

	book, err := svc.CreateBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965})
	require.NoError(t, err)

	_, err = svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)

	_, err = svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	title := "Dune Messiah"
	_, err = svc.UpdateBook(ctx, book.ID, model.BookPatch{Title: &title})
	require.NoError(t, err)

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title, "update must evict the cached copy")

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	_, err = svc.GetBook(ctx, book.ID)
	requireHTTPError(t, err, http.StatusNotFound)
}

func TestCreateBookNotifies(t *testing.T) {
	ctx := context.Background()

	t.Run("notified", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc := newTestService(t, WithNotifier(notifier))

		book, err := svc.CreateBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965})
		require.NoError(t, err)
		require.Len(t, notifier.added, 1)
		assert.Equal(t, book.ID, notifier.added[0].ID)
	})

	t.Run("notifier failure does not fail create", func(t *testing.T) {
		notifier := &fakeNotifier{err: errors.New("redis down")}
		svc := newTestService(t, WithNotifier(notifier))

		_, err := svc.CreateBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965})
		require.NoError(t, err)

		n, err := svc.CountBooks(ctx, model.BookFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("invalid book is not announced", func(t *testing.T) {
		notifier := &fakeNotifier{}
		svc := newTestService(t, WithNotifier(notifier))

		_, err := svc.CreateBook(ctx, model.Book{Title: "", Author: "x", PublicationYear: 2000})
		require.Error(t, err)
		assert.Empty(t, notifier.added)
	})
}
