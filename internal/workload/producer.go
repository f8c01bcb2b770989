package workload

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

// Producer fills the shared queue with a randomized operation mix over a
// bounded keyspace. It is the in-repo stand-in for an external workload
// generator; the dispatch loop only sees the queue.
type Producer struct {
	keys        int
	readRatio   float64
	deleteRatio float64
	valueSize   int
	duration    time.Duration
	queue       chan<- Item
	logger      *slog.Logger
	rng         *rand.Rand
}

// ProducerConfig holds the workload shape knobs.
type ProducerConfig struct {
	Keys        int
	ReadRatio   float64
	DeleteRatio float64
	ValueSize   int
	Duration    time.Duration
}

// NewProducer creates a producer writing into queue. The producer owns the
// send side: Run closes the queue on return, which is the terminal signal
// for every worker consuming it.
func NewProducer(cfg ProducerConfig, queue chan<- Item, logger *slog.Logger) *Producer {
	return &Producer{
		keys:        cfg.Keys,
		readRatio:   cfg.ReadRatio,
		deleteRatio: cfg.DeleteRatio,
		valueSize:   cfg.ValueSize,
		duration:    cfg.Duration,
		queue:       queue,
		logger:      logger,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Run generates items until the configured duration elapses or ctx is
// canceled, then closes the queue.
func (p *Producer) Run(ctx context.Context) {
	defer close(p.queue)

	deadline := time.NewTimer(p.duration)
	defer deadline.Stop()

	var produced uint64
	stopped := func(reason string) {
		p.logger.Info("producer stopping", "reason", reason, "produced", produced)
	}
	for {
		// Prefer stopping over generating when both are ready, so shutdown
		// never builds an item that nothing will consume.
		select {
		case <-ctx.Done():
			stopped("canceled")
			return
		case <-deadline.C:
			stopped("duration elapsed")
			return
		default:
		}

		item := p.next()
		select {
		case <-ctx.Done():
			stopped("canceled")
			return
		case <-deadline.C:
			stopped("duration elapsed")
			return
		case p.queue <- item:
			produced++
		}
	}
}

// next draws one operation from the configured mix.
func (p *Producer) next() Item {
	key := fmt.Sprintf("k%06d", p.rng.IntN(p.keys))

	roll := p.rng.Float64()
	switch {
	case roll < p.readRatio:
		return Request(Operation{Kind: OpGet, Key: key})
	case roll < p.readRatio+p.deleteRatio:
		return Request(Operation{Kind: OpDelete, Key: key})
	default:
		return Request(Operation{Kind: OpPut, Key: key, Value: p.randomValue()})
	}
}

func (p *Producer) randomValue() []byte {
	buf := make([]byte, p.valueSize)
	for i := range buf {
		buf[i] = letters[p.rng.IntN(len(letters))]
	}
	return buf
}
