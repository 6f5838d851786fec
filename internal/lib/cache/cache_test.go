package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*BookCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewBookCache(client, ttl), mr
}

func testBook() *model.Book {
	stamp := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	return &model.Book{
		ID:              7,
		Title:           "1984",
		Author:          "George Orwell",
		PublicationYear: 1949,
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bookshelf:book:42", Key(42))
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	book, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 5*time.Minute)
	book := testBook()

	require.NoError(t, c.Set(ctx, book))

	raw, err := mr.Get(Key(book.ID))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"title": "1984",
		"author": "George Orwell",
		"publication_year": 1949,
		"created_at": "2024-05-01T12:30:00Z",
		"updated_at": "2024-05-01T12:30:00Z"
	}`, raw)

	got, err := c.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, got)
}

func TestSetAppliesTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 30*time.Second)
	book := testBook()

	require.NoError(t, c.Set(ctx, book))
	assert.Equal(t, 30*time.Second, mr.TTL(Key(book.ID)))

	mr.FastForward(31 * time.Second)

	got, err := c.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteEvicts(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	book := testBook()

	require.NoError(t, c.Set(ctx, book))
	require.NoError(t, c.Delete(ctx, book.ID))
	assert.False(t, mr.Exists(Key(book.ID)))

	got, err := c.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Delete(ctx, 999))
}

func TestGetCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(Key(3), "not json"))

	_, err := c.Get(context.Background(), 3)
	assert.ErrorContains(t, err, "decoding cached book 3")
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.SetError("ERR server unavailable")

	book, err := c.Get(ctx, 1)
	assert.ErrorContains(t, err, "reading cached book 1")
	assert.Nil(t, book)

	assert.Error(t, c.Set(ctx, testBook()))
}
