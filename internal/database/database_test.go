package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Database {
	t.Helper()

	logger := zerolog.Nop()
	db, err := OpenSQLite(MemoryPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestOpenSQLite(t *testing.T) {
	db := openMemory(t)

	assert.Equal(t, config.DriverSQLite, db.Driver)
	assert.Equal(t, DialectSQLite, db.Dialect())
	assert.Nil(t, db.Pool)
	require.NoError(t, db.Ping(context.Background()))
}

func TestOpenSQLiteFileIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.db")
	logger := zerolog.Nop()

	first, err := OpenSQLite(path, &logger)
	require.NoError(t, err)
	_, err = first.Adapter().Exec(context.Background(),
		`INSERT INTO books (title, author, publication_year, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"Dune", "Frank Herbert", 1965, time.Now(), time.Now())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	var count int
	require.NoError(t, second.SQL.Get(&count, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 1, count)
}

func TestSQLXAdapter(t *testing.T) {
	ctx := context.Background()
	adapter := openMemory(t).Adapter()

	now := time.Now().UTC()
	res, err := adapter.Exec(ctx,
		`INSERT INTO books (title, author, publication_year, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"1984", "George Orwell", 1949, now, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	rows, err := adapter.Query(ctx, `SELECT title, publication_year FROM books WHERE id = ?`, id)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var title string
	var year int
	require.NoError(t, rows.Scan(&title, &year))
	assert.Equal(t, "1984", title)
	assert.Equal(t, 1949, year)
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Err())
}

func TestSQLiteSchemaConstraints(t *testing.T) {
	adapter := openMemory(t).Adapter()
	now := time.Now().UTC()

	_, err := adapter.Exec(context.Background(),
		`INSERT INTO books (title, author, publication_year, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"", "Nobody", 2000, now, now)
	assert.Error(t, err)

	_, err = adapter.Exec(context.Background(),
		`INSERT INTO books (title, author, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"Untitled", "Nobody", now, now)
	assert.Error(t, err)
}
