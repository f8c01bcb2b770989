// Package metrics holds the counters and the latency histogram the dispatch
// loop records into. The registry is injectable rather than process-global so
// each test run can observe an isolated set of counters.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Outcome label values. Every dispatched operation terminates in exactly one.
const (
	OutcomeOK             = "ok"
	OutcomeException      = "exception"
	OutcomeTimeout        = "timeout"
	OutcomeRateLimited    = "ratelimited"
	OutcomeBackendTimeout = "backend_timeout"
)

// Operation label values the dispatch loop supports.
var ops = []string{"get", "put", "delete"}

var outcomes = []string{
	OutcomeOK,
	OutcomeException,
	OutcomeTimeout,
	OutcomeRateLimited,
	OutcomeBackendTimeout,
}

// Metrics bundles all instruments on one private registry.
type Metrics struct {
	registry *prometheus.Registry

	connectTotal   prometheus.Counter
	connectCurrent prometheus.Gauge

	requestsTotal       *prometheus.CounterVec
	requestsDispatched  prometheus.Counter
	requestsUnsupported prometheus.Counter

	responsesTotal *prometheus.CounterVec

	getHits   prometheus.Counter
	getMisses prometheus.Counter

	responseLatency prometheus.Histogram
}

// New creates a Metrics with its own registry and all instruments registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stoker_connect_total",
			Help: "Total number of backend connections established.",
		}),
		connectCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stoker_connect_current",
			Help: "Number of currently open backend connections.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoker_requests_total",
			Help: "Total number of operations attempted, by operation.",
		}, []string{"op"}),
		requestsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stoker_requests_dispatched_total",
			Help: "Total number of operations that completed dispatch.",
		}),
		requestsUnsupported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stoker_requests_unsupported_total",
			Help: "Total number of work items skipped as unsupported.",
		}),
		responsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoker_responses_total",
			Help: "Total number of responses, by operation and outcome.",
		}, []string{"op", "outcome"}),
		getHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stoker_get_hits_total",
			Help: "Total number of gets that found the key.",
		}),
		getMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stoker_get_misses_total",
			Help: "Total number of gets that did not find the key.",
		}),
		responseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "stoker_response_latency_ns",
			Help: "Latency of successful backend calls, in nanoseconds.",
			// 1us to ~34s in powers of two.
			Buckets: prometheus.ExponentialBuckets(1000, 2, 26),
		}),
	}

	m.registry.MustRegister(
		m.connectTotal,
		m.connectCurrent,
		m.requestsTotal,
		m.requestsDispatched,
		m.requestsUnsupported,
		m.responsesTotal,
		m.getHits,
		m.getMisses,
		m.responseLatency,
	)

	// Pre-initialize label combinations so every series appears at 0 from
	// startup, rather than only after its first observation.
	for _, op := range ops {
		m.requestsTotal.WithLabelValues(op)
		for _, outcome := range outcomes {
			m.responsesTotal.WithLabelValues(op, outcome)
		}
	}

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ConnectOpened records one established backend connection.
func (m *Metrics) ConnectOpened() {
	m.connectTotal.Inc()
	m.connectCurrent.Inc()
}

// ConnectClosed records one closed backend connection.
func (m *Metrics) ConnectClosed() {
	m.connectCurrent.Dec()
}

// Attempted records that an operation of the given kind was taken off the
// queue for dispatch.
func (m *Metrics) Attempted(op string) {
	m.requestsTotal.WithLabelValues(op).Inc()
}

// Dispatched records that a dispatch completed, regardless of outcome.
func (m *Metrics) Dispatched() {
	m.requestsDispatched.Inc()
}

// Unsupported records a work item skipped because its operation kind is
// outside the supported set.
func (m *Metrics) Unsupported() {
	m.requestsUnsupported.Inc()
}

// Outcome records the terminal outcome of one dispatched operation.
func (m *Metrics) Outcome(op, outcome string) {
	m.responsesTotal.WithLabelValues(op, outcome).Inc()
}

// Hit records a get that found its key.
func (m *Metrics) Hit() {
	m.getHits.Inc()
}

// Miss records a get whose key was definitively absent.
func (m *Metrics) Miss() {
	m.getMisses.Inc()
}

// ObserveLatency records the duration of one successful backend call.
func (m *Metrics) ObserveLatency(d time.Duration) {
	m.responseLatency.Observe(float64(d.Nanoseconds()))
}

// Snapshot is a point-in-time copy of all counter values, consumed by the
// stats endpoint and by run persistence.
type Snapshot struct {
	Connects       uint64                       `json:"connects"`
	ConnectCurrent int64                        `json:"connect_current"`
	Requests       map[string]uint64            `json:"requests"`
	Dispatched     uint64                       `json:"dispatched"`
	Unsupported    uint64                       `json:"unsupported"`
	Responses      map[string]map[string]uint64 `json:"responses"`
	Hits           uint64                       `json:"hits"`
	Misses         uint64                       `json:"misses"`
	LatencyCount   uint64                       `json:"latency_count"`
	LatencySumNS   float64                      `json:"latency_sum_ns"`
}

// Snapshot gathers the registry into plain numbers. Gathering is safe while
// workers are still incrementing; the result is a consistent-enough view for
// reporting, not a linearizable cut.
func (m *Metrics) Snapshot() (*Snapshot, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	snap := &Snapshot{
		Requests:  make(map[string]uint64),
		Responses: make(map[string]map[string]uint64),
	}
	for _, op := range ops {
		snap.Responses[op] = make(map[string]uint64)
	}

	for _, fam := range families {
		switch fam.GetName() {
		case "stoker_connect_total":
			snap.Connects = uint64(fam.GetMetric()[0].GetCounter().GetValue())
		case "stoker_connect_current":
			snap.ConnectCurrent = int64(fam.GetMetric()[0].GetGauge().GetValue())
		case "stoker_requests_dispatched_total":
			snap.Dispatched = uint64(fam.GetMetric()[0].GetCounter().GetValue())
		case "stoker_requests_unsupported_total":
			snap.Unsupported = uint64(fam.GetMetric()[0].GetCounter().GetValue())
		case "stoker_get_hits_total":
			snap.Hits = uint64(fam.GetMetric()[0].GetCounter().GetValue())
		case "stoker_get_misses_total":
			snap.Misses = uint64(fam.GetMetric()[0].GetCounter().GetValue())
		case "stoker_requests_total":
			for _, metric := range fam.GetMetric() {
				snap.Requests[labelValue(metric.GetLabel(), "op")] = uint64(metric.GetCounter().GetValue())
			}
		case "stoker_responses_total":
			for _, metric := range fam.GetMetric() {
				op := labelValue(metric.GetLabel(), "op")
				outcome := labelValue(metric.GetLabel(), "outcome")
				if snap.Responses[op] == nil {
					snap.Responses[op] = make(map[string]uint64)
				}
				snap.Responses[op][outcome] = uint64(metric.GetCounter().GetValue())
			}
		case "stoker_response_latency_ns":
			hist := fam.GetMetric()[0].GetHistogram()
			snap.LatencyCount = hist.GetSampleCount()
			snap.LatencySumNS = hist.GetSampleSum()
		}
	}

	return snap, nil
}

func labelValue(pairs []*dto.LabelPair, name string) string {
	for _, p := range pairs {
		if p.GetName() == name {
			return p.GetValue()
		}
	}
	return ""
}
