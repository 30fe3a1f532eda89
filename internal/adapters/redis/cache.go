package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// AcquireScanGuard returns false while the same device already submitted the
// same payload within ttl.
func (c *Cache) AcquireScanGuard(ctx context.Context, deviceID, payload string, ttl time.Duration) (bool, error) {
	key := "scan:" + deviceID + ":" + strconv.FormatUint(xxhash.Sum64String(payload), 16)
	res := c.client.SetNX(ctx, key, time.Now().Unix(), ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseScanGuard(ctx context.Context, deviceID, payload string) error {
	key := "scan:" + deviceID + ":" + strconv.FormatUint(xxhash.Sum64String(payload), 16)
	return c.client.Del(ctx, key).Err()
}
