// Package cache provides a Redis-backed read-through cache for single catalog items.
//
// Read-through pattern:
//   - On read:  Redis is checked first (cache HIT). On a miss, the caller reads the
//     item's generation, falls back to the index and back-fills the cache.
//   - On write: the index is written first, then Invalidate bumps the generation and
//     drops the cached copy.
//
// Backfill only stores the copy if the generation is still the one read before the
// index lookup, so a reader that fetched a document just before a write cannot put
// the old copy back after the write invalidated it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-catalog-search/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix = "item:"
	genKeyPrefix  = "item-gen:"

	// genTTL must outlive any single read; after it a generation restarts at 0.
	genTTL = 24 * time.Hour
)

var (
	// ErrNotFound is returned when a key does not exist in the cache.
	ErrNotFound = errors.New("cache: key not found")
	// ErrStale is returned by Backfill when the item was invalidated after
	// the caller read its generation. Nothing is stored.
	ErrStale = errors.New("cache: item changed since generation was read")
)

// Client wraps the Redis client and exposes domain-level operations.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a Redis client and verifies the connection with a PING.
func New(addr string, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close shuts down the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Generation returns the item's invalidation counter. Read it before
// fetching the item from the index and hand it to Backfill.
func (c *Client) Generation(ctx context.Context, id string) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKeyPrefix+id).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Backfill stores item with the configured TTL unless the item has been
// invalidated since gen was read, in which case it returns ErrStale.
func (c *Client) Backfill(ctx context.Context, item *models.Item, gen int64) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	genKey := genKeyPrefix + item.ID

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, itemKeyPrefix+item.ID, data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

// GetItem fetches an Item by ID from Redis.
// Returns ErrNotFound when the key does not exist or has expired.
func (c *Client) GetItem(ctx context.Context, id string) (*models.Item, error) {
	data, err := c.rdb.Get(ctx, itemKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Invalidate bumps the item's generation and drops the cached copy in one
// transaction. Invalidating an uncached item is not an error.
func (c *Client) Invalidate(ctx context.Context, id string) error {
	genKey := genKeyPrefix + id
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		pipe.Del(ctx, itemKeyPrefix+id)
		return nil
	})
	return err
}
