package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/server"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(mutate func(*config.Config)) *server.Server {
	cfg := &config.Config{
		Primary:       config.Primary{Env: "local"},
		Observability: config.DefaultObservabilityConfig(),
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := zerolog.Nop()

	return &server.Server{Config: cfg, Logger: &logger}
}

// newEcho wires the global error handler and a GET /ok route behind mws.
func newEcho(mws ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = (&GlobalMiddlewares{}).GlobalErrorHandler
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	}, mws...)

	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()

	var body errs.HTTPError
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestHostAllowed(t *testing.T) {
	allowed := []string{"books.example.org", ".bookshelf.test"}

	tests := []struct {
		host string
		want bool
	}{
		{"books.example.org", true},
		{"bookshelf.test", true},
		{"api.bookshelf.test", true},
		{"evil.example.org", false},
		{"notbookshelf.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, hostAllowed(tt.host, allowed))
		})
	}

	assert.Equal(t, "books.example.org", requestHost("Books.Example.org.:8080"))
}

func TestAllowedHosts(t *testing.T) {
	e := newEcho(AllowedHosts([]string{" books.example.org "}))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Host = "books.example.org:8080"
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Host = "attacker.test"
	rec := serve(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid host header", decodeError(t, rec).Message)

	open := newEcho(AllowedHosts([]string{"books.example.org", "*"}))
	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Host = "attacker.test"
	assert.Equal(t, http.StatusOK, serve(open, req).Code)
}

func TestRequestID(t *testing.T) {
	e := newEcho(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := serve(e, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())
}

func TestGetLoggerFallback(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	require.NotNil(t, GetLogger(c))
	assert.Equal(t, zerolog.Disabled, GetLogger(c).GetLevel())

	custom := zerolog.Nop().Level(zerolog.WarnLevel)
	c.Set(LoggerKey, &custom)
	assert.Same(t, &custom, GetLogger(c))
}

func TestGlobalErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = (&GlobalMiddlewares{}).GlobalErrorHandler

	code := "BOOK_NOT_FOUND"
	missing := func(c echo.Context) error {
		return errors.Wrap(errs.NewNotFoundError("Book not found", true, &code), "loading book")
	}
	e.GET("/missing", missing)
	e.HEAD("/missing", missing)
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("connection reset")
	})
	e.GET("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "BOOK_NOT_FOUND", body.Code)
	assert.True(t, body.Override)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decodeError(t, rec)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)
	assert.NotContains(t, body.Message, "connection reset")

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", decodeError(t, rec).Message)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body = decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "Route not found", body.Message)

	rec = serve(e, httptest.NewRequest(http.MethodHead, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	s := testServer(func(cfg *config.Config) { cfg.Server.RateLimit = 1 })
	e := newEcho(NewRateLimitMiddleware(s).Limit())

	for range 2 {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decodeError(t, rec).Code)

	other := httptest.NewRequest(http.MethodGet, "/ok", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, serve(e, other).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	e := newEcho(NewRateLimitMiddleware(testServer(nil)).Limit())

	for range 10 {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
	}
}

func TestAdminOnly(t *testing.T) {
	local := NewAuthMiddleware(testServer(nil))
	assert.Empty(t, local.AdminOnly())

	keyed := NewAuthMiddleware(testServer(func(cfg *config.Config) { cfg.Auth.SecretKey = "sk_test_123" }))
	assert.Len(t, keyed.AdminOnly(), 2)

	prod := NewAuthMiddleware(testServer(func(cfg *config.Config) { cfg.Primary.Env = "production" }))
	e := newEcho(prod.AdminOnly()...)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuthMiddleware(testServer(nil))

	withRole := func(role string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				c.Set(UserIDKey, "user_1")
				c.Set(UserRoleKey, role)
				return next(c)
			}
		}
	}

	member := newEcho(withRole("org:member"), auth.RequireAdmin)
	assert.Equal(t, http.StatusForbidden, serve(member, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)

	admin := newEcho(withRole(AdminRole), auth.RequireAdmin)
	assert.Equal(t, http.StatusOK, serve(admin, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
}
