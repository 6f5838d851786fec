package repository

import (
	"context"
	"strings"
	"time"

	"github.com/deppfellow/bookshelf/internal/database"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pkg/errors"
)

const (
	TableBooks = "books"

	colID              = "id"
	colTitle           = "title"
	colAuthor          = "author"
	colPublicationYear = "publication_year"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"
)

var (
	// ErrBookNotFound means no stored book matched.
	ErrBookNotFound = errors.New("book not found")

	// ErrMultipleBooks means a lookup expected to select one book matched several.
	ErrMultipleBooks = errors.New("multiple books match the lookup")

	// ErrEmptyLookup means Get was called without any criterion.
	ErrEmptyLookup = errors.New("book lookup has no criteria")
)

var bookColumns = []any{colID, colTitle, colAuthor, colPublicationYear, colCreatedAt, colUpdatedAt}

// BookRepository is the book record store.
type BookRepository struct {
	db        database.DBAdapter
	dialect   goqu.DialectWrapper
	returning bool
	now       func() time.Time
}

// NewBookRepository creates a store over db speaking the given goqu dialect
// ("postgres" or "sqlite3").
func NewBookRepository(db database.DBAdapter, dialect string) *BookRepository {
	return &BookRepository{
		db:        db,
		dialect:   goqu.Dialect(dialect),
		returning: dialect == database.DialectPostgres,
		now:       time.Now,
	}
}

// Create inserts b and sets its ID and timestamps.
func (r *BookRepository) Create(ctx context.Context, b *model.Book) error {
	now := r.timestamp()

	insert := r.dialect.Insert(TableBooks).
		Prepared(true).
		Rows(goqu.Record{
			colTitle:           b.Title,
			colAuthor:          b.Author,
			colPublicationYear: b.PublicationYear,
			colCreatedAt:       now,
			colUpdatedAt:       now,
		})

	var id int64
	if r.returning {
		query, args, err := insert.Returning(colID).ToSQL()
		if err != nil {
			return errors.Wrap(err, "building insert")
		}

		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "inserting book")
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return errors.Wrap(err, "inserting book")
			}
			return errors.New("insert returned no id")
		}
		if err := rows.Scan(&id); err != nil {
			return errors.Wrap(err, "scanning inserted id")
		}
	} else {
		query, args, err := insert.ToSQL()
		if err != nil {
			return errors.Wrap(err, "building insert")
		}

		res, err := r.db.Exec(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "inserting book")
		}

		if id, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "reading inserted id")
		}
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now

	return nil
}

// Get returns the single book matching lookup.
func (r *BookRepository) Get(ctx context.Context, lookup model.BookLookup) (*model.Book, error) {
	if lookup.IsEmpty() {
		return nil, ErrEmptyLookup
	}

	where := exp.Ex{}
	if lookup.ID != nil {
		where[colID] = *lookup.ID
	}
	if lookup.Title != nil {
		where[colTitle] = *lookup.Title
	}
	if lookup.Author != nil {
		where[colAuthor] = *lookup.Author
	}

	// Two rows are enough to tell "exactly one" from "several".
	query, args, err := r.dialect.From(TableBooks).
		Prepared(true).
		Select(bookColumns...).
		Where(where).
		Order(goqu.I(colID).Asc()).
		Limit(2).
		ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building lookup")
	}

	books, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}

	switch len(books) {
	case 0:
		return nil, ErrBookNotFound
	case 1:
		return &books[0], nil
	default:
		return nil, ErrMultipleBooks
	}
}

// GetByID returns the book with the given id.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return r.Get(ctx, model.ByID(id))
}

// All returns the books matching filter, ordered by filter.Ordering or id.
func (r *BookRepository) All(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	column, desc := filter.OrderColumn()

	order := []exp.OrderedExpression{goqu.I(column).Asc()}
	if desc {
		order[0] = goqu.I(column).Desc()
	}
	if column != colID {
		order = append(order, goqu.I(colID).Asc())
	}

	ds := r.dialect.From(TableBooks).
		Prepared(true).
		Select(bookColumns...).
		Where(filterExpressions(filter)...).
		Order(order...)

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building listing")
	}

	return r.query(ctx, query, args)
}

// Count returns how many books match filter. Ordering and paging are ignored.
func (r *BookRepository) Count(ctx context.Context, filter model.BookFilter) (int64, error) {
	query, args, err := r.dialect.From(TableBooks).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(filterExpressions(filter)...).
		ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "building count")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "counting books")
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, errors.Wrap(err, "scanning count")
		}
	}

	return count, errors.Wrap(rows.Err(), "counting books")
}

// Update writes b's title, author and publication year and refreshes
// UpdatedAt.
func (r *BookRepository) Update(ctx context.Context, b *model.Book) error {
	now := r.timestamp()

	query, args, err := r.dialect.Update(TableBooks).
		Prepared(true).
		Set(goqu.Record{
			colTitle:           b.Title,
			colAuthor:          b.Author,
			colPublicationYear: b.PublicationYear,
			colUpdatedAt:       now,
		}).
		Where(goqu.C(colID).Eq(b.ID)).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "building update")
	}

	if err := r.execOne(ctx, query, args, "updating book"); err != nil {
		return err
	}

	b.UpdatedAt = now

	return nil
}

// Delete removes the book with the given id.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.dialect.Delete(TableBooks).
		Prepared(true).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if err != nil {
		return errors.Wrap(err, "building delete")
	}

	return r.execOne(ctx, query, args, "deleting book")
}

func (r *BookRepository) execOne(ctx context.Context, query string, args []any, action string) error {
	res, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, action)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, action)
	}
	if affected == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (r *BookRepository) query(ctx context.Context, query string, args []any) ([]model.Book, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.PublicationYear, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning book")
		}
		b.CreatedAt = b.CreatedAt.UTC()
		b.UpdatedAt = b.UpdatedAt.UTC()
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating books")
	}

	return books, nil
}

// timestamp is the current UTC time at the microsecond precision both
// backends store.
func (r *BookRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// filterExpressions turns filter into WHERE expressions. Text "contains"
// matches are case-insensitive.
func filterExpressions(f model.BookFilter) []exp.Expression {
	var where []exp.Expression

	if f.Title != "" {
		where = append(where, goqu.C(colTitle).Eq(f.Title))
	}
	if f.TitleContains != "" {
		where = append(where, containsFold(colTitle, f.TitleContains))
	}
	if f.Author != "" {
		where = append(where, goqu.C(colAuthor).Eq(f.Author))
	}
	if f.AuthorContains != "" {
		where = append(where, containsFold(colAuthor, f.AuthorContains))
	}
	if f.Search != "" {
		where = append(where, goqu.Or(
			containsFold(colTitle, f.Search),
			containsFold(colAuthor, f.Search),
		))
	}
	if f.PublicationYear != nil {
		where = append(where, goqu.C(colPublicationYear).Eq(*f.PublicationYear))
	}
	if f.PublicationYearMin != nil {
		where = append(where, goqu.C(colPublicationYear).Gte(*f.PublicationYearMin))
	}
	if f.PublicationYearMax != nil {
		where = append(where, goqu.C(colPublicationYear).Lte(*f.PublicationYearMax))
	}
	if f.PublicationDecade != nil {
		decade := *f.PublicationDecade
		where = append(where, goqu.C(colPublicationYear).Between(exp.NewRangeVal(decade, decade+9)))
	}

	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold matches column values containing needle, ignoring case.
// LOWER + LIKE behaves the same on PostgreSQL and SQLite, unlike ILIKE.
func containsFold(column, needle string) exp.LiteralExpression {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(needle)) + "%"

	return goqu.L(`LOWER(?) LIKE ? ESCAPE '\'`, goqu.I(column), pattern)
}
