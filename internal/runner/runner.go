package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/seantiz/stoker/internal/backend"
	"github.com/seantiz/stoker/internal/metrics"
	"github.com/seantiz/stoker/internal/workload"
)

// ErrQueueClosed is returned by a worker when the work-item queue closes.
// It marks the producer side shutting down: reported, never retried.
var ErrQueueClosed = errors.New("work queue closed")

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Params wires a Runner to its collaborators.
type Params struct {
	Driver         backend.Driver
	Backend        backend.Config
	StoreName      string
	Poolsize       int
	Concurrency    int
	RequestTimeout time.Duration
	Queue          <-chan workload.Item
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Runner owns the connection pool and the worker goroutines that drain the
// shared work-item queue.
type Runner struct {
	driver         backend.Driver
	backendCfg     backend.Config
	storeName      string
	poolsize       int
	concurrency    int
	requestTimeout time.Duration
	queue          <-chan workload.Item
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// New creates a Runner. Params are assumed validated by config.Validate.
func New(p Params) *Runner {
	return &Runner{
		driver:         p.Driver,
		backendCfg:     p.Backend,
		storeName:      p.StoreName,
		poolsize:       p.Poolsize,
		concurrency:    p.Concurrency,
		requestTimeout: p.RequestTimeout,
		queue:          p.Queue,
		metrics:        p.Metrics,
		logger:         p.Logger,
	}
}

// Run connects the pool, spawns poolsize x concurrency workers, and blocks
// until every worker has exited: either the queue closed or ctx was canceled.
// A connect failure is returned as a fatal error; a run against a dead
// backend would only measure noise.
func (r *Runner) Run(ctx context.Context) error {
	clients := make([]backend.Client, 0, r.poolsize)
	closeAll := func() {
		for _, c := range clients {
			if err := c.Close(); err != nil {
				r.logger.Warn("closing backend connection", "error", err)
			}
			r.metrics.ConnectClosed()
		}
	}

	for i := range r.poolsize {
		client, err := r.driver.Connect(ctx, r.backendCfg)
		if err != nil {
			closeAll()
			return fmt.Errorf("connect backend (%d of %d): %w", i+1, r.poolsize, err)
		}
		r.metrics.ConnectOpened()
		clients = append(clients, client)
	}

	r.logger.Info("pool connected",
		"poolsize", r.poolsize,
		"concurrency", r.concurrency,
		"workers", r.poolsize*r.concurrency,
	)

	var wg sync.WaitGroup
	for _, client := range clients {
		// One salt per connection: all workers sharing the connection share
		// the salted store name, and concurrent runs never collide.
		store := saltedStoreName(r.storeName)
		for range r.concurrency {
			w := &worker{
				client:  client,
				store:   store,
				timeout: r.requestTimeout,
				queue:   r.queue,
				metrics: r.metrics,
			}
			wg.Go(func() {
				if err := w.run(ctx); err != nil {
					r.logger.Info("worker exited", "store", store, "error", err)
				}
			})
		}
	}

	wg.Wait()
	closeAll()
	return nil
}

// saltedStoreName prefixes name with a random 7-character alphanumeric salt.
func saltedStoreName(name string) string {
	salt := make([]byte, 7)
	for i := range salt {
		salt[i] = saltAlphabet[rand.IntN(len(saltAlphabet))]
	}
	return string(salt) + "-" + name
}

// worker is one sequential dispatch loop. Workers share the client and the
// queue but no mutable per-request state.
type worker struct {
	client  backend.Client
	store   string
	timeout time.Duration
	queue   <-chan workload.Item
	metrics *metrics.Metrics
}

// run consumes items until ctx is canceled or the queue closes. Cancellation
// is cooperative: it is checked between items, never mid-flight, so the
// current operation always runs to completion or timeout first.
func (w *worker) run(ctx context.Context) error {
	for {
		// Prefer stopping over dequeueing when both are ready.
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-w.queue:
			if !ok {
				return ErrQueueClosed
			}
			w.process(item)
		}
	}
}

// process dispatches one work item and records exactly one outcome for it.
func (w *worker) process(item workload.Item) {
	if item.Kind == workload.ItemReconnect {
		// Reserved: reconnect handling is not part of this loop.
		return
	}

	op := item.Op
	switch op.Kind {
	case workload.OpGet, workload.OpPut, workload.OpDelete:
	default:
		w.metrics.Unsupported()
		return
	}

	w.metrics.Attempted(op.Kind.String())

	start := time.Now()
	outcome := w.dispatch(op)
	elapsed := time.Since(start)

	w.metrics.Dispatched()
	w.metrics.Outcome(op.Kind.String(), outcome.label())
	if outcome == OutcomeSuccess {
		w.metrics.ObserveLatency(elapsed)
	}
}

// callResult carries a backend call result across the timeout race.
type callResult struct {
	get backend.GetResult
	err error
}

// dispatch races one backend call against the request timeout. On timeout the
// in-flight call is abandoned, not canceled: the result channel is buffered,
// so a late result parks there and can never alter the recorded outcome.
func (w *worker) dispatch(op workload.Operation) Outcome {
	done := make(chan callResult, 1)
	go func() {
		// The call runs on a background context so that worker shutdown
		// never cancels an in-flight operation.
		ctx := context.Background()
		switch op.Kind {
		case workload.OpGet:
			res, err := w.client.Get(ctx, w.store, op.Key)
			done <- callResult{get: res, err: err}
		case workload.OpPut:
			done <- callResult{err: w.client.Put(ctx, w.store, op.Key, op.Value)}
		case workload.OpDelete:
			done <- callResult{err: w.client.Delete(ctx, w.store, op.Key)}
		}
	}()

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return classifyError(res.err)
		}
		if op.Kind == workload.OpGet {
			if res.get.Found {
				w.metrics.Hit()
			} else {
				w.metrics.Miss()
			}
		}
		return OutcomeSuccess
	case <-timer.C:
		return OutcomeTimeout
	}
}
