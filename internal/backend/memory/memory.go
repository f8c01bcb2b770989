// Package memory implements an in-process backend driver. It exists for dry
// runs of the pipeline without a network backend, and for tests that need
// deterministic latency and failure injection.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/seantiz/stoker/internal/backend"
)

// Driver builds in-process clients. The zero value is ready to use.
type Driver struct {
	// Latency is applied to every operation before it completes.
	Latency time.Duration

	// FailWith, when non-nil, makes every operation fail with an error of
	// the given kind instead of touching the store.
	FailWith *backend.ErrorKind
}

// Compile-time interface satisfaction checks.
var (
	_ backend.Driver = (*Driver)(nil)
	_ backend.Client = (*Client)(nil)
)

// New creates the memory driver.
func New() *Driver {
	return &Driver{}
}

// Connect returns a fresh empty store. It never fails: there is nothing to
// reach and no credential to check.
func (d *Driver) Connect(_ context.Context, _ backend.Config) (backend.Client, error) {
	return &Client{
		latency:  d.Latency,
		failWith: d.FailWith,
		data:     make(map[string][]byte),
	}, nil
}

// Client is a mutex-guarded map. Keys are namespaced by store name the same
// way the network drivers do it, so salted store names isolate runs here too.
type Client struct {
	latency  time.Duration
	failWith *backend.ErrorKind

	mu   sync.RWMutex
	data map[string][]byte
}

func (c *Client) Get(ctx context.Context, store, key string) (backend.GetResult, error) {
	if err := c.simulate(ctx); err != nil {
		return backend.GetResult{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[store+":"+key]
	if !ok {
		return backend.GetResult{Found: false}, nil
	}
	// Copy so callers cannot mutate the stored value.
	out := make([]byte, len(v))
	copy(out, v)
	return backend.GetResult{Found: true, Value: out}, nil
}

func (c *Client) Put(ctx context.Context, store, key string, value []byte) error {
	if err := c.simulate(ctx); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[store+":"+key] = stored
	return nil
}

func (c *Client) Delete(ctx context.Context, store, key string) error {
	if err := c.simulate(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, store+":"+key)
	return nil
}

func (c *Client) Close() error { return nil }

// Len reports the number of stored keys across all stores.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// simulate applies the configured latency and failure injection.
func (c *Client) simulate(ctx context.Context) error {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return backend.NewError(backend.KindBackendTimeout, ctx.Err())
		}
	}
	if c.failWith != nil {
		return backend.NewError(*c.failWith, nil)
	}
	return nil
}
