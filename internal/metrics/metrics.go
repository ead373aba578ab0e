package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mag7qa"

// Query outcomes.
const (
	OutcomeParsed          = "parsed"
	OutcomeDegraded        = "degraded"
	OutcomeRetrievalError  = "retrieval_error"
	OutcomeGenerationError = "generation_error"
)

// Collector owns a private registry so tests and multiple servers do not collide.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry       *prometheus.Registry
	queries        *prometheus.CounterVec
	retrievalTime  prometheus.Histogram
	generationTime prometheus.Histogram
	activeSessions prometheus.Gauge
	indexChunks    prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered queries by outcome.",
		}, []string{"outcome"}),
		retrievalTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Time spent retrieving context chunks.",
			Buckets:   prometheus.DefBuckets,
		}),
		generationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting for the language model.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversation sessions held in memory.",
		}),
		indexChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Chunks in the loaded vector index.",
		}),
	}
	c.registry.MustRegister(
		c.queries,
		c.retrievalTime,
		c.generationTime,
		c.activeSessions,
		c.indexChunks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, outcome := range []string{OutcomeParsed, OutcomeDegraded, OutcomeRetrievalError, OutcomeGenerationError} {
		c.queries.WithLabelValues(outcome)
	}
	return c
}

func (c *Collector) ObserveQuery(outcome string) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRetrieval(d time.Duration) {
	if c == nil {
		return
	}
	c.retrievalTime.Observe(d.Seconds())
}

func (c *Collector) ObserveGeneration(d time.Duration) {
	if c == nil {
		return
	}
	c.generationTime.Observe(d.Seconds())
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}

func (c *Collector) SetIndexChunks(n int) {
	if c == nil {
		return
	}
	c.indexChunks.Set(float64(n))
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
