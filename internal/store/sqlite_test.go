package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/seantiz/stoker/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newRun() *model.Run {
	return &model.Run{
		ID:          model.NewID(),
		Status:      model.StatusRunning,
		Driver:      "memory",
		StoreName:   "bench",
		Poolsize:    2,
		Concurrency: 3,
		StartedAt:   time.Now().UTC(),
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newRun()
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != r.ID {
		t.Errorf("ID = %q, want %q", got.ID, r.ID)
	}
	if got.Status != model.StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusRunning)
	}
	if got.Driver != "memory" || got.StoreName != "bench" {
		t.Errorf("Driver, StoreName = %q, %q, want memory, bench", got.Driver, got.StoreName)
	}
	if got.Poolsize != 2 || got.Concurrency != 3 {
		t.Errorf("Poolsize, Concurrency = %d, %d, want 2, 3", got.Poolsize, got.Concurrency)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil for a running run", got.FinishedAt)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) = %v, want ErrNotFound", err)
	}
}

func TestFinishRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newRun()
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	r.Status = model.StatusCompleted
	r.Requests = 1000
	r.ResponsesOK = 940
	r.Exceptions = 20
	r.Timeouts = 30
	r.RateLimited = 5
	r.BackendTimeout = 5
	r.Hits = 600
	r.Misses = 340
	r.AvgLatencyNS = 1.25e6
	if err := s.FinishRun(ctx, r); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt = nil, want set")
	}
	if got.Requests != 1000 || got.ResponsesOK != 940 {
		t.Errorf("Requests, ResponsesOK = %d, %d, want 1000, 940", got.Requests, got.ResponsesOK)
	}
	if got.Timeouts != 30 || got.RateLimited != 5 || got.BackendTimeout != 5 {
		t.Errorf("Timeouts, RateLimited, BackendTimeout = %d, %d, %d, want 30, 5, 5",
			got.Timeouts, got.RateLimited, got.BackendTimeout)
	}
	if got.Hits != 600 || got.Misses != 340 {
		t.Errorf("Hits, Misses = %d, %d, want 600, 340", got.Hits, got.Misses)
	}
	if got.AvgLatencyNS != 1.25e6 {
		t.Errorf("AvgLatencyNS = %g, want 1.25e6", got.AvgLatencyNS)
	}
}

func TestFinishRunNotFound(t *testing.T) {
	s := newTestStore(t)

	r := newRun()
	r.Status = model.StatusFailed
	if err := s.FinishRun(context.Background(), r); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishRun on absent run = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 5 {
		r := newRun()
		r.StoreName = fmt.Sprintf("bench-%d", i)
		r.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun %d: %v", i, err)
		}
	}

	runs, total, err := s.ListRuns(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	// Newest first.
	if runs[0].StoreName != "bench-4" {
		t.Errorf("runs[0].StoreName = %q, want bench-4", runs[0].StoreName)
	}

	rest, _, err := s.ListRuns(ctx, 3, 3)
	if err != nil {
		t.Fatalf("ListRuns offset: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("len(rest) = %d, want 2", len(rest))
	}
}
