package handler

import (
	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/deppfellow/bookshelf/internal/service"
	"github.com/labstack/echo/v4"
)

// RouteGetBook names the single-book route, used for Location headers.
const RouteGetBook = "books.get"

var codeInvalidPage = "INVALID_PAGE"

// BookListResponse is one page of a listing. Count is the number of books
// matching the filters across all pages.
type BookListResponse struct {
	Count    int64        `json:"count"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Results  []model.Book `json:"results"`
}

// CountResponse answers GET /books/count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// BookHandler serves the /books routes on top of the book service.
//
// Every method receives an already bound and validated request (see
// Handle) and returns either the response body or an error that the global
// error handler renders.
type BookHandler struct {
	Handler
	books *service.BookService
}

// NewBookHandler builds the handler on top of books.
func NewBookHandler(s *server.Server, books *service.BookService) *BookHandler {
	return &BookHandler{
		Handler: NewHandler(s),
		books:   books,
	}
}

// ListBooks returns one page of the books matching the query filters.
//
// page and page_size default to 1 and DefaultPageSize. Count always holds
// the total number of matches, so clients can compute the number of pages.
// Asking for a page past the last one is a 404 with code INVALID_PAGE;
// page 1 of an empty result is an empty list.
func (h *BookHandler) ListBooks(c echo.Context, req *ListBooksRequest) (*BookListResponse, error) {
	ctx := c.Request().Context()
	filter := req.Filter()
	page, size := req.Paging()

	count, err := h.books.CountBooks(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Bound page before multiplying: (page-1)*size overflows for huge pages.
	if page > 1 && int64(page) > pageCount(count, size) {
		return nil, errs.NewNotFoundError("Invalid page.", true, &codeInvalidPage)
	}

	filter.Limit = size
	filter.Offset = (page - 1) * size

	books, err := h.books.ListBooks(ctx, filter)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}

	return &BookListResponse{
		Count:    count,
		Page:     page,
		PageSize: size,
		Results:  books,
	}, nil
}

// CountBooks returns how many books match the query filters.
func (h *BookHandler) CountBooks(c echo.Context, req *CountBooksRequest) (*CountResponse, error) {
	count, err := h.books.CountBooks(c.Request().Context(), req.Filter())
	if err != nil {
		return nil, err
	}

	return &CountResponse{Count: count}, nil
}

// LookupBook selects exactly one book by title and/or author. No match is
// a 404, several matches a 409.
func (h *BookHandler) LookupBook(c echo.Context, req *LookupBookRequest) (*model.Book, error) {
	return h.books.LookupBook(c.Request().Context(), req.Lookup())
}

// GetBook returns the book with the path id, or 404.
func (h *BookHandler) GetBook(c echo.Context, req *BookIDRequest) (*model.Book, error) {
	return h.books.GetBook(c.Request().Context(), req.ID)
}

// CreateBook stores a new book and points Location at it.
func (h *BookHandler) CreateBook(c echo.Context, req *CreateBookRequest) (*model.Book, error) {
	book, err := h.books.CreateBook(c.Request().Context(), req.Book())
	if err != nil {
		return nil, err
	}

	if location := c.Echo().Reverse(RouteGetBook, book.ID); location != "" {
		c.Response().Header().Set(echo.HeaderLocation, location)
	}

	return book, nil
}

// ReplaceBook overwrites every editable field of an existing book.
func (h *BookHandler) ReplaceBook(c echo.Context, req *ReplaceBookRequest) (*model.Book, error) {
	return h.books.UpdateBook(c.Request().Context(), req.ID, req.Patch())
}

// PatchBook updates only the fields present in the body.
func (h *BookHandler) PatchBook(c echo.Context, req *PatchBookRequest) (*model.Book, error) {
	return h.books.UpdateBook(c.Request().Context(), req.ID, req.Patch())
}

// DeleteBook removes the book with the path id. Deleting a missing book
// is a 404.
func (h *BookHandler) DeleteBook(c echo.Context, req *BookIDRequest) error {
	return h.books.DeleteBook(c.Request().Context(), req.ID)
}

// pageCount returns how many pages of size hold count books.
func pageCount(count int64, size int) int64 {
	pages := count / int64(size)
	if count%int64(size) != 0 {
		pages++
	}

	return pages
}
