package handler

import (
	"strconv"
	"strings"

	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BookFilterQuery holds the listing filters as query parameters. Years
// arrive as strings so a malformed value is reported per field.
type BookFilterQuery struct {
	Title              string `query:"title"`
	TitleContains      string `query:"title_icontains"`
	Author             string `query:"author"`
	AuthorName         string `query:"author_name"`
	Search             string `query:"search"`
	PublicationYear    string `query:"publication_year"`
	PublicationYearMin string `query:"publication_year_min"`
	PublicationYearMax string `query:"publication_year_max"`
	PublicationDecade  string `query:"publication_decade"`
	Ordering           string `query:"ordering"`
}

func (q *BookFilterQuery) validate() validation.CustomValidationErrors {
	var errs validation.CustomValidationErrors

	years := []struct {
		field string
		value string
	}{
		{"publication_year", q.PublicationYear},
		{"publication_year_min", q.PublicationYearMin},
		{"publication_year_max", q.PublicationYearMax},
		{"publication_decade", q.PublicationDecade},
	}
	for _, y := range years {
		if _, err := parseOptionalInt(y.value); err != nil {
			errs = append(errs, validation.CustomValidationError{Field: y.field, Message: "must be a whole number"})
		}
	}

	if q.Ordering != "" && !model.OrderingFields[strings.TrimPrefix(q.Ordering, "-")] {
		errs = append(errs, validation.CustomValidationError{
			Field:   "ordering",
			Message: "must be one of: id, title, author, publication_year, created_at, optionally prefixed with -",
		})
	}

	return errs
}

// Filter converts the query into a model.BookFilter. It assumes validate
// passed.
func (q *BookFilterQuery) Filter() model.BookFilter {
	year, _ := parseOptionalInt(q.PublicationYear)
	yearMin, _ := parseOptionalInt(q.PublicationYearMin)
	yearMax, _ := parseOptionalInt(q.PublicationYearMax)
	decade, _ := parseOptionalInt(q.PublicationDecade)

	return model.BookFilter{
		Title:              q.Title,
		TitleContains:      q.TitleContains,
		Author:             q.Author,
		AuthorContains:     q.AuthorName,
		Search:             q.Search,
		PublicationYear:    year,
		PublicationYearMin: yearMin,
		PublicationYearMax: yearMax,
		PublicationDecade:  decade,
		Ordering:           q.Ordering,
	}
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

// ListBooksRequest is GET /books: the filters plus 1-based paging.
// Zero page and page_size mean the defaults.
type ListBooksRequest struct {
	BookFilterQuery
	Page     int `query:"page" validate:"gte=0"`
	PageSize int `query:"page_size" validate:"gte=0,lte=100"`
}

func (r *ListBooksRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}

	if errs := r.BookFilterQuery.validate(); len(errs) > 0 {
		return errs
	}

	return nil
}

// Paging returns the 1-based page and its size with defaults applied.
func (r *ListBooksRequest) Paging() (page, size int) {
	page, size = r.Page, r.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	return page, size
}

// CountBooksRequest is GET /books/count. It takes the listing filters
// without paging.
type CountBooksRequest struct {
	BookFilterQuery
}

func (r *CountBooksRequest) Validate() error {
	if errs := r.BookFilterQuery.validate(); len(errs) > 0 {
		return errs
	}

	return nil
}

// LookupBookRequest selects one book by exact title and/or author.
type LookupBookRequest struct {
	Title  string `query:"title"`
	Author string `query:"author"`
}

func (r *LookupBookRequest) Validate() error {
	if r.Title == "" && r.Author == "" {
		return validation.CustomValidationErrors{
			{Field: "title", Message: "title or author is required"},
		}
	}

	return nil
}

// Lookup returns the criteria for the fields that were sent.
func (r *LookupBookRequest) Lookup() model.BookLookup {
	var lookup model.BookLookup
	if r.Title != "" {
		lookup.Title = &r.Title
	}
	if r.Author != "" {
		lookup.Author = &r.Author
	}

	return lookup
}

// BookIDRequest carries the :id path parameter of single-book routes.
type BookIDRequest struct {
	ID int64 `param:"id" json:"-" validate:"gte=1"`
}

func (r *BookIDRequest) Validate() error {
	return validation.Struct(r)
}

// CreateBookRequest is the body of POST /books. PublicationYear is a
// pointer so an omitted year is told apart from year 0.
type CreateBookRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required,max=100"`
	PublicationYear *int   `json:"publication_year" validate:"required"`
}

func (r *CreateBookRequest) Validate() error {
	return validation.Struct(r)
}

// Book converts the request into the model the service stores.
func (r *CreateBookRequest) Book() model.Book {
	return model.Book{
		Title:           r.Title,
		Author:          r.Author,
		PublicationYear: *r.PublicationYear,
	}
}

// ReplaceBookRequest is a full update: every field must be sent.
type ReplaceBookRequest struct {
	ID int64 `param:"id" json:"-" validate:"gte=1"`
	CreateBookRequest
}

func (r *ReplaceBookRequest) Validate() error {
	return validation.Struct(r)
}

func (r *ReplaceBookRequest) Patch() model.BookPatch {
	return model.BookPatch{
		Title:           &r.Title,
		Author:          &r.Author,
		PublicationYear: r.PublicationYear,
	}
}

// PatchBookRequest is a partial update: absent fields keep their value.
type PatchBookRequest struct {
	ID              int64   `param:"id" json:"-" validate:"gte=1"`
	Title           *string `json:"title" validate:"omitempty,max=200"`
	Author          *string `json:"author" validate:"omitempty,max=100"`
	PublicationYear *int    `json:"publication_year"`
}

func (r *PatchBookRequest) Validate() error {
	return validation.Struct(r)
}

func (r *PatchBookRequest) Patch() model.BookPatch {
	return model.BookPatch{
		Title:           r.Title,
		Author:          r.Author,
		PublicationYear: r.PublicationYear,
	}
}
