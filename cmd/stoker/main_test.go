package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seantiz/stoker/internal/metrics"
	"github.com/seantiz/stoker/internal/model"
	"github.com/seantiz/stoker/internal/store"
)

// finishTestRun runs finishRun against a fresh store and returns both the
// in-memory record and the row read back from the database.
func finishTestRun(t *testing.T, runErr error) (*model.Run, *model.Run) {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	run := &model.Run{
		ID:          model.NewID(),
		Status:      model.StatusRunning,
		Driver:      "memory",
		StoreName:   "bench",
		Poolsize:    1,
		Concurrency: 1,
		StartedAt:   time.Now().UTC(),
	}
	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	m := metrics.New()
	m.Attempted("get")
	m.Dispatched()
	m.Outcome("get", metrics.OutcomeOK)
	m.Hit()
	m.ObserveLatency(time.Millisecond)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	finishRun(db, m, run, runErr, logger)

	stored, err := db.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	return run, stored
}

func TestFinishRunSetsFinishedAtOnRecordAndRow(t *testing.T) {
	run, stored := finishTestRun(t, nil)

	if run.FinishedAt == nil {
		t.Error("in-memory record FinishedAt = nil, want set")
	}
	if stored.FinishedAt == nil {
		t.Error("stored row FinishedAt = nil, want set")
	}
	if run.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want completed", run.Status)
	}
	if run.Requests != 1 || run.ResponsesOK != 1 || run.Hits != 1 {
		t.Errorf("totals = requests %d, ok %d, hits %d, want 1, 1, 1",
			run.Requests, run.ResponsesOK, run.Hits)
	}
	if stored.Requests != run.Requests || stored.ResponsesOK != run.ResponsesOK {
		t.Errorf("stored totals diverge from record: %d/%d vs %d/%d",
			stored.Requests, stored.ResponsesOK, run.Requests, run.ResponsesOK)
	}
}

func TestFinishRunRecordsFailure(t *testing.T) {
	run, stored := finishTestRun(t, errors.New("connect backend: unreachable"))

	if run.Status != model.StatusFailed {
		t.Errorf("Status = %q, want failed", run.Status)
	}
	if stored.Status != model.StatusFailed {
		t.Errorf("stored Status = %q, want failed", stored.Status)
	}
	if run.Error == "" {
		t.Error("Error empty, want the run error message")
	}
	if run.FinishedAt == nil || stored.FinishedAt == nil {
		t.Error("FinishedAt not set on failed run")
	}
}
