package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required,max=5"`
	Count int    `json:"count" validate:"gte=0"`
	Sort  string `query:"sort" validate:"omitempty,oneof=asc desc"`
}

func (r *sampleRequest) Validate() error {
	return Struct(r)
}

type customRequest struct {
	A string `query:"a"`
	B string `query:"b"`
}

func (r *customRequest) Validate() error {
	if r.A == "" && r.B == "" {
		return CustomValidationErrors{{Field: "a", Message: "a or b is required"}}
	}
	return nil
}

func newContext(method, target, body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestBindAndValidate(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		var req sampleRequest
		err := BindAndValidate(newContext(http.MethodPost, "/", `{"name":"abc","count":1}`), &req)
		require.NoError(t, err)
		assert.Equal(t, "abc", req.Name)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		var req sampleRequest
		err := BindAndValidate(newContext(http.MethodPost, "/", `{"name":"abcdefg","count":-1}`), &req)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.ElementsMatch(t, []errs.FieldError{
			{Field: "name", Error: "must not exceed 5 characters"},
			{Field: "count", Error: "must be greater than or equal to 0"},
		}, httpErr.Errors)
	})

	t.Run("query names", func(t *testing.T) {
		var req sampleRequest
		err := BindAndValidate(newContext(http.MethodGet, "/?sort=sideways", ""), &req)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.True(t, httpErr.HasFieldError("sort"))
		assert.True(t, httpErr.HasFieldError("name"))
	})

	t.Run("malformed body", func(t *testing.T) {
		var req sampleRequest
		err := BindAndValidate(newContext(http.MethodPost, "/", `{"name":`), &req)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Empty(t, httpErr.Errors)
	})

	t.Run("custom errors", func(t *testing.T) {
		var req customRequest
		err := BindAndValidate(newContext(http.MethodGet, "/", ""), &req)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, []errs.FieldError{{Field: "a", Error: "a or b is required"}}, httpErr.Errors)
	})
}
