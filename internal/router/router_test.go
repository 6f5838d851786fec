package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/deppfellow/bookshelf/internal/database"
	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/handler"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/repository"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/deppfellow/bookshelf/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "local"},
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   database.MemoryPath,
		},
		Observability: config.DefaultObservabilityConfig(),
	}
}

func newTestAPI(t *testing.T, mutate ...func(*config.Config)) *echo.Echo {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	logger := zerolog.Nop()
	db, err := database.OpenSQLite(cfg.Database.Path, &logger)
	require.NoError(t, err)

	srv := server.NewWithDatabase(cfg, &logger, db)
	t.Cleanup(func() { _ = srv.Close() })

	services, err := service.NewService(srv, repository.NewRepositories(srv))
	require.NoError(t, err)

	return NewRouter(srv, handler.NewHandlers(srv, services))
}

func do(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

func createBook(t *testing.T, e *echo.Echo, body string) model.Book {
	t.Helper()

	rec := do(t, e, http.MethodPost, "/api/v1/books", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[model.Book](t, rec)
}

func seedShelf(t *testing.T, e *echo.Echo) {
	t.Helper()

	for _, body := range []string{
		`{"title":"1984","author":"George Orwell","publication_year":1949}`,
		`{"title":"Animal Farm","author":"George Orwell","publication_year":1945}`,
		`{"title":"Dune","author":"Frank Herbert","publication_year":1965}`,
		`{"title":"Brave New World","author":"Aldous Huxley","publication_year":1932}`,
	} {
		createBook(t, e, body)
	}
}

func TestBookLifecycle(t *testing.T) {
	e := newTestAPI(t)

	rec := do(t, e, http.MethodPost, "/api/v1/books", `{"title":"1984","author":"George Orwell","publication_year":1949}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Book](t, rec)
	assert.Equal(t, "/api/v1/books/1", rec.Header().Get(echo.HeaderLocation))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, e, http.MethodGet, "/api/v1/books/lookup?title=1984", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[model.Book](t, rec).ID)

	rec = do(t, e, http.MethodPatch, "/api/v1/books/1", `{"title":"Nineteen Eighty-Four"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/v1/books/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Book](t, rec)
	assert.Equal(t, "Nineteen Eighty-Four", got.Title)
	assert.Equal(t, "George Orwell", got.Author)
	assert.Equal(t, 1949, got.PublicationYear)

	rec = do(t, e, http.MethodDelete, "/api/v1/books/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/v1/books/lookup?title=Nineteen+Eighty-Four", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "BOOK_NOT_FOUND", decode[errs.HTTPError](t, rec).Code)

	rec = do(t, e, http.MethodGet, "/api/v1/books/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[handler.CountResponse](t, rec).Count)
}

func TestCreateBookValidation(t *testing.T) {
	e := newTestAPI(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing year", `{"title":"1984","author":"George Orwell"}`, "publication_year"},
		{"missing title", `{"author":"George Orwell","publication_year":1949}`, "title"},
		{"title too long", `{"title":"` + strings.Repeat("a", 201) + `","author":"x","publication_year":1949}`, "title"},
		{"future year", `{"title":"Later","author":"x","publication_year":99999}`, "publication_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, "/api/v1/books", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[errs.HTTPError](t, rec)
			assert.True(t, body.HasFieldError(tt.field), rec.Body.String())
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/api/v1/books", `{"title":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid JSON body", decode[errs.HTTPError](t, rec).Message)
	})

	rec := do(t, e, http.MethodGet, "/api/v1/books/count", "")
	assert.Equal(t, int64(0), decode[handler.CountResponse](t, rec).Count)
}

func TestGetBookErrors(t *testing.T) {
	e := newTestAPI(t)

	rec := do(t, e, http.MethodGet, "/api/v1/books/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errs.HTTPError](t, rec)
	assert.Equal(t, "BOOK_NOT_FOUND", body.Code)
	assert.Equal(t, "Book not found", body.Message)

	rec = do(t, e, http.MethodGet, "/api/v1/books/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookup(t *testing.T) {
	e := newTestAPI(t)
	seedShelf(t, e)

	rec := do(t, e, http.MethodGet, "/api/v1/books/lookup?author=George+Orwell", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BOOK_AMBIGUOUS_LOOKUP", decode[errs.HTTPError](t, rec).Code)

	rec = do(t, e, http.MethodGet, "/api/v1/books/lookup?author=George+Orwell&title=Animal+Farm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1945, decode[model.Book](t, rec).PublicationYear)

	rec = do(t, e, http.MethodGet, "/api/v1/books/lookup", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errs.HTTPError](t, rec)
	assert.True(t, body.HasFieldError("title"))
}

func TestListBooks(t *testing.T) {
	e := newTestAPI(t)
	seedShelf(t, e)

	titles := func(page handler.BookListResponse) []string {
		out := make([]string, 0, len(page.Results))
		for _, b := range page.Results {
			out = append(out, b.Title)
		}
		return out
	}

	t.Run("defaults", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books", "")
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[handler.BookListResponse](t, rec)
		assert.Equal(t, int64(4), page.Count)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, handler.DefaultPageSize, page.PageSize)
		assert.Equal(t, []string{"1984", "Animal Farm", "Dune", "Brave New World"}, titles(page))
	})

	t.Run("decade", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?publication_decade=1940", "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[handler.BookListResponse](t, rec)
		assert.Equal(t, int64(2), page.Count)
		assert.Equal(t, []string{"1984", "Animal Farm"}, titles(page))
	})

	t.Run("ordering", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?ordering=-publication_year", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Dune", "1984", "Animal Farm", "Brave New World"}, titles(decode[handler.BookListResponse](t, rec)))
	})

	t.Run("search", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?search=ORWELL", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"1984", "Animal Farm"}, titles(decode[handler.BookListResponse](t, rec)))
	})

	t.Run("year range", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?publication_year_min=1940&publication_year_max=1950", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(2), decode[handler.BookListResponse](t, rec).Count)
	})

	t.Run("second page", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?page=2&page_size=3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[handler.BookListResponse](t, rec)
		assert.Equal(t, int64(4), page.Count)
		assert.Equal(t, []string{"Brave New World"}, titles(page))
	})

	t.Run("page past the end", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?page=3&page_size=3", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "INVALID_PAGE", decode[errs.HTTPError](t, rec).Code)
	})

	t.Run("page too large to address", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?page=4611686018427387905&page_size=4", "")
		require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		assert.Equal(t, "INVALID_PAGE", decode[errs.HTTPError](t, rec).Code)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books?page_size=101", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errs.HTTPError](t, rec)
		assert.True(t, body.HasFieldError("page_size"))

		rec = do(t, e, http.MethodGet, "/api/v1/books?publication_year=abc&ordering=isbn", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body = decode[errs.HTTPError](t, rec)
		assert.True(t, body.HasFieldError("publication_year"))
		assert.True(t, body.HasFieldError("ordering"))
	})

	t.Run("count with filter", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/api/v1/books/count?author_name=orwell", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(2), decode[handler.CountResponse](t, rec).Count)
	})
}

func TestReplaceBook(t *testing.T) {
	e := newTestAPI(t)
	book := createBook(t, e, `{"title":"1984","author":"George Orwell","publication_year":1949}`)

	rec := do(t, e, http.MethodPut, "/api/v1/books/1", `{"title":"Homage to Catalonia"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPut, "/api/v1/books/1", `{"title":"Homage to Catalonia","author":"George Orwell","publication_year":1938}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Book](t, rec)
	assert.Equal(t, book.ID, updated.ID)
	assert.Equal(t, 1938, updated.PublicationYear)
	assert.True(t, book.CreatedAt.Equal(updated.CreatedAt))

	rec = do(t, e, http.MethodPut, "/api/v1/books/77", `{"title":"x","author":"y","publication_year":1938}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWritesWithoutAuthOutsideLocal(t *testing.T) {
	e := newTestAPI(t, func(c *config.Config) { c.Primary.Env = "production" })

	rec := do(t, e, http.MethodPost, "/api/v1/books", `{"title":"1984","author":"George Orwell","publication_year":1949}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/books", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	e := newTestAPI(t)

	rec := do(t, e, http.MethodGet, "/api/v1/authors", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[errs.HTTPError](t, rec)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "Route not found", body.Message)
}

func TestAllowedHosts(t *testing.T) {
	e := newTestAPI(t, func(c *config.Config) {
		c.Server.AllowedHosts = []string{"books.example.org", ".bookshelf.test"}
	})

	for host, want := range map[string]int{
		"books.example.org":      http.StatusOK,
		"api.bookshelf.test":     http.StatusOK,
		"bookshelf.test:8080":    http.StatusOK,
		"evil.example.org":       http.StatusBadRequest,
		"bookshelf.test.evil.io": http.StatusBadRequest,
	} {
		t.Run(host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/books/count", nil)
			req.Host = host
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, want, rec.Code)
		})
	}
}

func TestStatus(t *testing.T) {
	e := newTestAPI(t)

	rec := do(t, e, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[handler.HealthResponse](t, rec)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "local", body.Environment)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.NotContains(t, body.Checks, "redis")
}
