package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/redis/go-redis/v9"
)

const generationKey = "gallery:listings:generation"

// ListingCache stores reconstruction results in Redis. Keys embed a
// generation counter; bumping it makes every older entry unreachable and
// leaves them to expire on their own.
type ListingCache struct {
	client *redis.Client
}

func NewListingCache(ctx context.Context, addr, password string, db int) (*ListingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &ListingCache{client: client}, nil
}

// NewListingCacheFromClient wraps an existing client.
func NewListingCacheFromClient(client *redis.Client) *ListingCache {
	return &ListingCache{client: client}
}

func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}
	data, err := c.client.Get(ctx, entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, 0, err
	}
	return data, gen, nil
}

// Set writes under gen as given. A reader that fetched its data before an
// Invalidate therefore lands in a generation nobody reads any more.
func (c *ListingCache) Set(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, entryKey(gen, key), value, ttl).Err()
}

func (c *ListingCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *ListingCache) Close() error {
	return c.client.Close()
}

func (c *ListingCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

func entryKey(gen int64, key string) string {
	return fmt.Sprintf("gallery:listings:%d:%s", gen, key)
}
