// Package model holds the domain types shared by every layer.
package model

import (
	"strings"
	"time"
)

// Length limits, in characters. They match the max rules in Book's
// validate tags and the column sizes of the schema.
const (
	TitleMaxLength  = 200
	AuthorMaxLength = 100
)

// Book is one stored book record. ID is assigned by the database on
// create and never changes afterwards.
//
// The validate tags hold the field rules every write must satisfy; the
// publication year is checked against the clock by the service.
type Book struct {
	ID              int64     `json:"id" yaml:"id" db:"id"`
	Title           string    `json:"title" yaml:"title" db:"title" validate:"required,max=200"`
	Author          string    `json:"author" yaml:"author" db:"author" validate:"required,max=100"`
	PublicationYear int       `json:"publication_year" yaml:"publication_year" db:"publication_year"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// BookPatch carries the fields an update changes. Nil fields keep their
// stored value.
type BookPatch struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
}

// Apply copies the set fields of p onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.PublicationYear != nil {
		b.PublicationYear = *p.PublicationYear
	}
}

// IsEmpty reports whether p changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.PublicationYear == nil
}

// BookLookup selects exactly one book by exact-match criteria. Set fields
// are combined with AND.
type BookLookup struct {
	ID     *int64
	Title  *string
	Author *string
}

// ByID returns a lookup on the primary key.
func ByID(id int64) BookLookup {
	return BookLookup{ID: &id}
}

// ByTitle returns a lookup on the exact title.
func ByTitle(title string) BookLookup {
	return BookLookup{Title: &title}
}

// IsEmpty reports whether no criterion is set.
func (l BookLookup) IsEmpty() bool {
	return l.ID == nil && l.Title == nil && l.Author == nil
}

// Orderable columns for BookFilter.Ordering.
var OrderingFields = map[string]bool{
	"id":               true,
	"title":            true,
	"author":           true,
	"publication_year": true,
	"created_at":       true,
}

// BookFilter narrows and orders a listing. The zero value matches every
// book, ordered by id.
type BookFilter struct {
	Title              string
	TitleContains      string
	Author             string
	AuthorContains     string
	Search             string
	PublicationYear    *int
	PublicationYearMin *int
	PublicationYearMax *int
	PublicationDecade  *int

	// Ordering is a column from OrderingFields, "-" prefixed for descending.
	Ordering string

	Limit  int
	Offset int
}

// OrderColumn splits Ordering into a column and direction. An empty or
// unknown ordering yields ("id", false).
func (f BookFilter) OrderColumn() (column string, desc bool) {
	column = strings.TrimSpace(f.Ordering)
	if rest, ok := strings.CutPrefix(column, "-"); ok {
		column, desc = rest, true
	}

	if !OrderingFields[column] {
		return "id", false
	}

	return column, desc
}
