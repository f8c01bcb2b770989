package backend

import "context"

// Config carries everything a driver needs to establish a connection.
// Credentials are read from the environment by the driver itself.
type Config struct {
	Addr string
}

// Driver constructs client connections for one backend kind. Connect is
// called once per pool slot at startup; a returned error is treated as fatal
// by the caller because a run against an unreachable backend is worthless.
type Driver interface {
	Connect(ctx context.Context, cfg Config) (Client, error)
}

// Client is a handle to one backend connection. Implementations must be safe
// for concurrent use: the worker pool shares a single Client across many
// goroutines, modeling a multiplexed network client.
type Client interface {
	// Get retrieves the value stored under key in the named store. A missing
	// key is not an error; it is reported through GetResult.Found.
	Get(ctx context.Context, store, key string) (GetResult, error)

	// Put stores value under key in the named store.
	Put(ctx context.Context, store, key string, value []byte) error

	// Delete removes key from the named store. Deleting an absent key is
	// acknowledged, not an error.
	Delete(ctx context.Context, store, key string) error

	Close() error
}

// GetResult is the outcome of a successful Get: either the key was found with
// its value, or the backend answered definitively that it is absent.
type GetResult struct {
	Found bool
	Value []byte
}
