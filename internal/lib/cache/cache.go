// Package cache keeps recently read books in Redis.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/deppfellow/bookshelf/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bookshelf:book:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookCache is a read-through cache of single books.
type BookCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewBookCache stores entries in client for ttl.
func NewBookCache(client redis.UniversalClient, ttl time.Duration) *BookCache {
	return &BookCache{client: client, ttl: ttl}
}

// Key returns the Redis key of book id.
func Key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// Get returns the cached book, or (nil, nil) on a miss.
func (c *BookCache) Get(ctx context.Context, id int64) (*model.Book, error) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading cached book %d", id)
	}

	var book model.Book
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, errors.Wrapf(err, "decoding cached book %d", id)
	}

	return &book, nil
}

// Set caches book under its id.
func (c *BookCache) Set(ctx context.Context, book *model.Book) error {
	raw, err := json.Marshal(book)
	if err != nil {
		return errors.Wrapf(err, "encoding book %d", book.ID)
	}

	return errors.Wrapf(c.client.Set(ctx, Key(book.ID), raw, c.ttl).Err(), "caching book %d", book.ID)
}

// Delete evicts book id.
func (c *BookCache) Delete(ctx context.Context, id int64) error {
	return errors.Wrapf(c.client.Del(ctx, Key(id)).Err(), "evicting book %d", id)
}
