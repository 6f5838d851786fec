package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// ErrLastInsertIDUnsupported is returned by drivers that report generated
// keys through RETURNING instead.
var ErrLastInsertIDUnsupported = errors.New("last insert id is not supported by this driver")

// DBAdapter is the slice of a database connection the repositories need.
//
// Repositories build their SQL with goqu for the dialect of the open
// database and run it through a DBAdapter, so the same repository code
// works on a pgx pool (Postgres) and on an sqlx handle (SQLite). Queries
// must already use the placeholder style of the target driver: goqu emits
// $1 for the postgres dialect and ? for sqlite3.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBRows iterates query results.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult describes the outcome of an Exec.
//
// LastInsertId is only meaningful on SQLite. Postgres callers read
// generated keys with RETURNING, and the pgx result answers
// ErrLastInsertIDUnsupported.
type DBResult interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool *pgxpool.Pool
}

// NewPGXAdapter wraps pool. Queries run on any free pool connection.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// Query runs a statement returning rows. The caller must Close them.
func (p *PGXAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Exec runs a statement without a result set and reports the affected
// row count from the command tag.
func (p *PGXAdapter) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (p *pgxRows) Next() bool             { return p.rows.Next() }
func (p *pgxRows) Scan(dest ...any) error { return p.rows.Scan(dest...) }
func (p *pgxRows) Err() error             { return p.rows.Err() }

func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

type pgxResult struct {
	tag pgconn.CommandTag
}

func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}

func (p *pgxResult) LastInsertId() (int64, error) {
	return 0, ErrLastInsertIDUnsupported
}

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter wraps db. For SQLite, db is pinned to a single
// connection (see OpenSQLite), so statements are serialized.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Query runs a statement returning rows. The caller must Close them.
func (s *SQLXAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &sqlxRows{rows: rows}, nil
}

func (s *SQLXAdapter) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	return s.db.ExecContext(ctx, query, args...)
}

type sqlxRows struct {
	rows *sqlx.Rows
}

func (s *sqlxRows) Next() bool             { return s.rows.Next() }
func (s *sqlxRows) Scan(dest ...any) error { return s.rows.Scan(dest...) }
func (s *sqlxRows) Err() error             { return s.rows.Err() }
func (s *sqlxRows) Close() error           { return s.rows.Close() }

var _ DBResult = (sql.Result)(nil)
