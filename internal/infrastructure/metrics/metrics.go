// Package metrics exposes Prometheus collectors for the HTTP API, the ledger
// and the background workers.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fuelops/internal/domain/ledger"
	"fuelops/internal/infrastructure/storage/postgres"
)

const namespace = "fuelops"

// Metrics holds every collector the service registers.
type Metrics struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	deltas       *prometheus.CounterVec
	gaps         *prometheus.CounterVec
	gapReplays   *prometheus.CounterVec
	outbox       *prometheus.CounterVec
}

var _ ledger.Observer = (*Metrics)(nil)

// New registers collectors on a fresh registry that also carries the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers collectors on registerer. Tests pass their own registry.
func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		registry: registerer,
		gatherer: gatherer,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_deltas_total",
			Help:      "Tank level deltas by outcome.",
		}, []string{"outcome"}),
		gaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_gaps_total",
			Help:      "Deltas that could not be applied and were recorded as gaps.",
		}, []string{"reason"}),
		gapReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_gap_replays_total",
			Help:      "Gap replay attempts by result.",
		}, []string{"result"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_deliveries_total",
			Help:      "Outbox relay deliveries by event type and result.",
		}, []string{"event_type", "result"}),
	}

	registerer.MustRegister(m.httpRequests, m.httpDuration, m.deltas, m.gaps, m.gapReplays, m.outbox)
	return m
}

// DeltaApplied implements ledger.Observer.
func (m *Metrics) DeltaApplied(outcome ledger.Outcome) {
	m.deltas.WithLabelValues(string(outcome)).Inc()
}

// GapRecorded implements ledger.Observer.
func (m *Metrics) GapRecorded(reason string) {
	m.gaps.WithLabelValues(reason).Inc()
}

// GapReplayed implements ledger.Observer.
func (m *Metrics) GapReplayed(result string) {
	m.gapReplays.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// PoolStatser is satisfied by *postgres.Pool.
type PoolStatser interface {
	Stats() postgres.PoolStats
}

// RegisterPool exports connection pool gauges, read on every scrape.
func (m *Metrics) RegisterPool(pool PoolStatser) {
	gauge := func(name, help string, read func(postgres.PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(pool.Stats())) })
	}
	m.registry.MustRegister(
		gauge("total_conns", "Open connections.", func(s postgres.PoolStats) int32 { return s.TotalConns }),
		gauge("acquired_conns", "Connections in use.", func(s postgres.PoolStats) int32 { return s.AcquiredConns }),
		gauge("idle_conns", "Idle connections.", func(s postgres.PoolStats) int32 { return s.IdleConns }),
		gauge("max_conns", "Configured maximum.", func(s postgres.PoolStats) int32 { return s.MaxConns }),
	)
}

// InstrumentOutbox counts deliveries made by next.
func (m *Metrics) InstrumentOutbox(next postgres.OutboxHandler) postgres.OutboxHandler {
	return outboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		err := next.Handle(ctx, msg)
		result := "published"
		if err != nil {
			result = "failed"
		}
		m.outbox.WithLabelValues(msg.EventType, result).Inc()
		return err
	})
}

type outboxHandlerFunc func(ctx context.Context, msg *postgres.OutboxMessage) error

func (f outboxHandlerFunc) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return f(ctx, msg)
}
