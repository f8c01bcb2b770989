package workload

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestProducerClosesQueueOnCancel(t *testing.T) {
	queue := make(chan Item, 16)
	p := NewProducer(ProducerConfig{
		Keys: 100, ReadRatio: 0.8, DeleteRatio: 0.1, ValueSize: 8,
		Duration: time.Hour,
	}, queue, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Drain a few items, then cancel.
	for range 5 {
		select {
		case <-queue:
		case <-time.After(time.Second):
			t.Fatal("producer did not produce within 1s")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop within 1s of cancel")
	}

	// The queue must be closed so consumers observe the terminal condition.
	for {
		if _, ok := <-queue; !ok {
			return
		}
	}
}

func TestProducerClosesQueueAfterDuration(t *testing.T) {
	queue := make(chan Item, 1024)
	p := NewProducer(ProducerConfig{
		Keys: 100, ReadRatio: 0.5, DeleteRatio: 0, ValueSize: 8,
		Duration: 20 * time.Millisecond,
	}, queue, testLogger())

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	// Keep draining so the producer never blocks on a full queue.
	go func() {
		for range queue {
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after configured duration")
	}
}

func TestProducerStopsBeforeGeneratingWhenCanceled(t *testing.T) {
	queue := make(chan Item, 16)
	p := NewProducer(ProducerConfig{
		Keys: 100, ReadRatio: 0.8, DeleteRatio: 0.1, ValueSize: 8,
		Duration: time.Hour,
	}, queue, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop on pre-canceled context")
	}

	// Nothing may have been generated: the stop check runs first.
	count := 0
	for range queue {
		count++
	}
	if count != 0 {
		t.Errorf("producer enqueued %d items on a canceled context, want 0", count)
	}
}

func TestProducerMixAndKeyFormat(t *testing.T) {
	queue := make(chan Item, 4096)
	p := NewProducer(ProducerConfig{
		Keys: 50, ReadRatio: 1.0, DeleteRatio: 0, ValueSize: 8,
		Duration: time.Hour,
	}, queue, testLogger())

	keyPattern := regexp.MustCompile(`^k\d{6}$`)

	for range 200 {
		item := p.next()
		if item.Kind != ItemRequest {
			t.Fatalf("Kind = %v, want ItemRequest", item.Kind)
		}
		if item.Op.Kind != OpGet {
			t.Errorf("with ReadRatio=1 got op %v, want OpGet", item.Op.Kind)
		}
		if !keyPattern.MatchString(item.Op.Key) {
			t.Errorf("key %q does not match %s", item.Op.Key, keyPattern)
		}
	}
}

func TestProducerPutCarriesValue(t *testing.T) {
	queue := make(chan Item, 16)
	p := NewProducer(ProducerConfig{
		Keys: 50, ReadRatio: 0, DeleteRatio: 0, ValueSize: 32,
		Duration: time.Hour,
	}, queue, testLogger())

	item := p.next()
	if item.Op.Kind != OpPut {
		t.Fatalf("with ReadRatio=0, DeleteRatio=0 got op %v, want OpPut", item.Op.Kind)
	}
	if len(item.Op.Value) != 32 {
		t.Errorf("value size = %d, want 32", len(item.Op.Value))
	}
}

func TestOpKindString(t *testing.T) {
	tests := []struct {
		kind OpKind
		want string
	}{
		{OpGet, "get"},
		{OpPut, "put"},
		{OpDelete, "delete"},
		{OpIncr, "incr"},
		{OpExpire, "expire"},
		{OpKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("OpKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
