// Package redis implements the backend driver for Redis-compatible stores
// using go-redis. One Client wraps one connection pool; go-redis handles are
// safe for concurrent use, so the worker pool shares them freely.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/seantiz/stoker/internal/backend"
	"github.com/seantiz/stoker/internal/config"
)

// Driver connects to a Redis backend.
type Driver struct{}

// Compile-time interface satisfaction checks.
var (
	_ backend.Driver = (*Driver)(nil)
	_ backend.Client = (*Client)(nil)
)

// New creates the Redis driver.
func New() *Driver {
	return &Driver{}
}

// Connect builds a client and verifies the backend is reachable. The
// credential comes from the environment; its absence fails here so the
// process can abort before any traffic is generated.
func (d *Driver) Connect(ctx context.Context, cfg backend.Config) (backend.Client, error) {
	key, ok := os.LookupEnv(config.EnvAPIKey)
	if !ok {
		return nil, fmt.Errorf("environment variable %s is not set", config.EnvAPIKey)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: key,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Client adapts a go-redis handle to the backend.Client contract. Store
// scoping is a key prefix: the logical store name becomes "store:key".
type Client struct {
	rdb *goredis.Client
}

// Get retrieves a key. A redis.Nil reply is a definitive miss, not an error.
func (c *Client) Get(ctx context.Context, store, key string) (backend.GetResult, error) {
	val, err := c.rdb.Get(ctx, storeKey(store, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return backend.GetResult{Found: false}, nil
	}
	if err != nil {
		return backend.GetResult{}, classify(err)
	}
	return backend.GetResult{Found: true, Value: val}, nil
}

// Put stores a value without expiry.
func (c *Client) Put(ctx context.Context, store, key string, value []byte) error {
	if err := c.rdb.Set(ctx, storeKey(store, key), value, 0).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Delete removes a key. Redis acknowledges deletes of absent keys with a
// zero count, which is still a success here.
func (c *Client) Delete(ctx context.Context, store, key string) error {
	if err := c.rdb.Del(ctx, storeKey(store, key)).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func storeKey(store, key string) string {
	return store + ":" + key
}

// classify maps go-redis error shapes onto the tagged backend error set.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return backend.NewError(backend.KindBackendTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return backend.NewError(backend.KindBackendTimeout, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "max number of clients reached"),
		strings.Contains(msg, "OOM command not allowed"),
		strings.HasPrefix(msg, "BUSY"):
		return backend.NewError(backend.KindRateLimited, err)
	}

	return backend.NewError(backend.KindException, err)
}
