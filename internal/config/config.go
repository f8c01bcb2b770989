package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr     = ":8080"
	defaultDBPath         = "stoker.db"
	defaultDriver         = "memory"
	defaultBackendAddr    = "localhost:6379"
	defaultStoreName      = "stoker"
	defaultPoolsize       = 1
	defaultConcurrency    = 1
	defaultRequestTimeout = time.Second
	defaultDuration       = 60 * time.Second
	defaultKeys           = 10000
	defaultReadRatio      = 0.8
	defaultDeleteRatio    = 0.05
	defaultValueSize      = 128
	defaultQueueDepth     = 1024

	envListenAddr     = "STOKER_LISTEN_ADDR"
	envDBPath         = "STOKER_DB_PATH"
	envLogLevel       = "STOKER_LOG_LEVEL"
	envDriver         = "STOKER_DRIVER"
	envBackendAddr    = "STOKER_BACKEND_ADDR"
	envStoreName      = "STOKER_STORE_NAME"
	envPoolsize       = "STOKER_POOLSIZE"
	envConcurrency    = "STOKER_CONCURRENCY"
	envRequestTimeout = "STOKER_REQUEST_TIMEOUT"
	envDuration       = "STOKER_DURATION"
	envKeys           = "STOKER_KEYS"
	envReadRatio      = "STOKER_READ_RATIO"
	envDeleteRatio    = "STOKER_DELETE_RATIO"
	envValueSize      = "STOKER_VALUE_SIZE"
	envQueueDepth     = "STOKER_QUEUE_DEPTH"

	// EnvAPIKey names the credential consumed by backend drivers at connect
	// time. Drivers read it from the environment themselves so the value never
	// sits in a long-lived config struct.
	EnvAPIKey = "STOKER_API_KEY"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// Backend connection.
	Driver      string
	BackendAddr string
	StoreName   string

	// Pool shape and request bounds.
	Poolsize       int
	Concurrency    int
	RequestTimeout time.Duration

	// Workload shape.
	Duration    time.Duration
	Keys        int
	ReadRatio   float64
	DeleteRatio float64
	ValueSize   int
	QueueDepth  int
}

// Load reads configuration from environment variables with sensible defaults.
// A malformed value is an error, not a silent default: a run started with a
// quietly defaulted knob would measure the wrong thing. Call Validate on the
// result for the cross-field constraints.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DBPath:         defaultDBPath,
		LogLevel:       slog.LevelInfo,
		Driver:         defaultDriver,
		BackendAddr:    defaultBackendAddr,
		StoreName:      defaultStoreName,
		Poolsize:       defaultPoolsize,
		Concurrency:    defaultConcurrency,
		RequestTimeout: defaultRequestTimeout,
		Duration:       defaultDuration,
		Keys:           defaultKeys,
		ReadRatio:      defaultReadRatio,
		DeleteRatio:    defaultDeleteRatio,
		ValueSize:      defaultValueSize,
		QueueDepth:     defaultQueueDepth,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envDriver); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv(envBackendAddr); v != "" {
		cfg.BackendAddr = v
	}
	if v := os.Getenv(envStoreName); v != "" {
		cfg.StoreName = v
	}
	var errs []error
	cfg.Poolsize = intEnv(envPoolsize, cfg.Poolsize, &errs)
	cfg.Concurrency = intEnv(envConcurrency, cfg.Concurrency, &errs)
	cfg.RequestTimeout = durationEnv(envRequestTimeout, cfg.RequestTimeout, &errs)
	cfg.Duration = durationEnv(envDuration, cfg.Duration, &errs)
	cfg.Keys = intEnv(envKeys, cfg.Keys, &errs)
	cfg.ReadRatio = floatEnv(envReadRatio, cfg.ReadRatio, &errs)
	cfg.DeleteRatio = floatEnv(envDeleteRatio, cfg.DeleteRatio, &errs)
	cfg.ValueSize = intEnv(envValueSize, cfg.ValueSize, &errs)
	cfg.QueueDepth = intEnv(envQueueDepth, cfg.QueueDepth, &errs)

	return cfg, errors.Join(errs...)
}

// Validate checks the constraints a run depends on. A load-generation run
// with a broken setup produces meaningless numbers, so every violation here
// is fatal at startup rather than handled per request.
func (c Config) Validate() error {
	if c.Poolsize <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", envPoolsize, c.Poolsize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", envConcurrency, c.Concurrency)
	}
	if c.StoreName == "" {
		return fmt.Errorf("%s must be a non-empty store name", envStoreName)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %s", envRequestTimeout, c.RequestTimeout)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %s", envDuration, c.Duration)
	}
	if c.Keys <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", envKeys, c.Keys)
	}
	if c.ReadRatio < 0 || c.ReadRatio > 1 {
		return fmt.Errorf("%s must be within [0,1], got %g", envReadRatio, c.ReadRatio)
	}
	if c.DeleteRatio < 0 || c.DeleteRatio > 1 {
		return fmt.Errorf("%s must be within [0,1], got %g", envDeleteRatio, c.DeleteRatio)
	}
	if c.ReadRatio+c.DeleteRatio > 1 {
		return fmt.Errorf("%s + %s must not exceed 1, got %g", envReadRatio, envDeleteRatio, c.ReadRatio+c.DeleteRatio)
	}
	if c.ValueSize <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", envValueSize, c.ValueSize)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", envQueueDepth, c.QueueDepth)
	}
	return nil
}

func intEnv(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func floatEnv(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
