package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seantiz/stoker/internal/api"
	"github.com/seantiz/stoker/internal/backend"
	"github.com/seantiz/stoker/internal/backend/memory"
	"github.com/seantiz/stoker/internal/backend/redis"
	"github.com/seantiz/stoker/internal/config"
	"github.com/seantiz/stoker/internal/metrics"
	"github.com/seantiz/stoker/internal/model"
	"github.com/seantiz/stoker/internal/runner"
	"github.com/seantiz/stoker/internal/store"
	"github.com/seantiz/stoker/internal/workload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("stoker: starting",
		"driver", cfg.Driver,
		"backend_addr", cfg.BackendAddr,
		"store_name", cfg.StoreName,
		"poolsize", cfg.Poolsize,
		"concurrency", cfg.Concurrency,
		"request_timeout", cfg.RequestTimeout.String(),
		"duration", cfg.Duration.String(),
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	reg := backend.NewRegistry()
	reg.Register("memory", memory.New())
	reg.Register("redis", redis.New())

	driver, err := reg.Resolve(cfg.Driver)
	if err != nil {
		log.Fatalf("failed to resolve driver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	queue := make(chan workload.Item, cfg.QueueDepth)

	producer := workload.NewProducer(workload.ProducerConfig{
		Keys:        cfg.Keys,
		ReadRatio:   cfg.ReadRatio,
		DeleteRatio: cfg.DeleteRatio,
		ValueSize:   cfg.ValueSize,
		Duration:    cfg.Duration,
	}, queue, logger)

	r := runner.New(runner.Params{
		Driver:         driver,
		Backend:        backend.Config{Addr: cfg.BackendAddr},
		StoreName:      cfg.StoreName,
		Poolsize:       cfg.Poolsize,
		Concurrency:    cfg.Concurrency,
		RequestTimeout: cfg.RequestTimeout,
		Queue:          queue,
		Metrics:        m,
		Logger:         logger,
	})

	run := &model.Run{
		ID:          model.NewID(),
		Status:      model.StatusRunning,
		Driver:      cfg.Driver,
		StoreName:   cfg.StoreName,
		Poolsize:    cfg.Poolsize,
		Concurrency: cfg.Concurrency,
		StartedAt:   time.Now().UTC(),
	}
	if err := db.CreateRun(ctx, run); err != nil {
		logger.Error("failed to record run start", "run_id", run.ID, "error", err)
	}

	srv := api.NewServer(cfg.ListenAddr, db, reg, m, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(ctx) }()
	go producer.Run(ctx)

	runErr := r.Run(ctx)

	finishRun(db, m, run, runErr, logger)

	stop()
	if err := <-serverErr; err != nil {
		logger.Error("server exited with error", "error", err)
	}

	if runErr != nil {
		log.Fatalf("run failed: %v", runErr)
	}
	logger.Info("stoker: run complete", "run_id", run.ID)
}

// finishRun copies final counter totals into the run record and persists it.
func finishRun(db store.Store, m *metrics.Metrics, run *model.Run, runErr error, logger *slog.Logger) {
	snap, err := m.Snapshot()
	if err != nil {
		logger.Error("failed to snapshot metrics", "error", err)
		return
	}

	run.Status = model.StatusCompleted
	if runErr != nil {
		run.Status = model.StatusFailed
		run.Error = runErr.Error()
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	for _, n := range snap.Requests {
		run.Requests += n
	}
	for _, byOutcome := range snap.Responses {
		run.ResponsesOK += byOutcome[metrics.OutcomeOK]
		run.Exceptions += byOutcome[metrics.OutcomeException]
		run.Timeouts += byOutcome[metrics.OutcomeTimeout]
		run.RateLimited += byOutcome[metrics.OutcomeRateLimited]
		run.BackendTimeout += byOutcome[metrics.OutcomeBackendTimeout]
	}
	run.Unsupported = snap.Unsupported
	run.Hits = snap.Hits
	run.Misses = snap.Misses
	if snap.LatencyCount > 0 {
		run.AvgLatencyNS = snap.LatencySumNS / float64(snap.LatencyCount)
	}

	if err := db.FinishRun(context.Background(), run); err != nil {
		logger.Error("failed to record run finish", "run_id", run.ID, "error", err)
	}
}
