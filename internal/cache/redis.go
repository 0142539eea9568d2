package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "polyterm:"

// Redis is a shared cache backend, useful when several agent invocations on
// one host should reuse each other's responses within the freshness window.
type Redis struct {
	rdb *redis.Client
}

// RedisOptions holds the connection parameters for the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	ro := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLS {
		ro.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", opts.Addr, err)
	}
	return &Redis{rdb: rdb}, nil
}

// Get returns the cached value for key. Redis owns expiry, so a hit is
// always fresh.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with the given TTL.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Redis) Close() error {
	return c.rdb.Close()
}
