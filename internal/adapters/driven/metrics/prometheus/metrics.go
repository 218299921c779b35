// Package prometheus exposes ingestion pipeline metrics in the Prometheus
// format and serves them over HTTP for scraping.
package prometheus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.CycleObserver = (*Metrics)(nil)

const namespace = "ragsync"

// Metrics holds the Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	ChunksTotal      *prometheus.CounterVec
	SourcesTotal     *prometheus.CounterVec
	ChangesTotal     *prometheus.CounterVec
	TriggersTotal    *prometheus.CounterVec
	IndexEntries     prometheus.Gauge
	EmbeddingLatency prometheus.Histogram
	LastSuccess      prometheus.Gauge
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Ingestion cycles by outcome (indexed, noop, error).",
			},
			[]string{"outcome"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Ingestion cycle duration in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Chunks by fate (indexed, duplicate, filtered, failed).",
			},
			[]string{"fate"},
		),
		SourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sources_total",
				Help:      "Sources by load status (loaded, unchanged, skipped, failed).",
			},
			[]string{"status"},
		),
		ChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_changes_total",
				Help:      "Filesystem changes observed by the watcher by type.",
			},
			[]string{"type"},
		),
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Cycle triggers by reason and whether they were coalesced into a running cycle.",
			},
			[]string{"reason", "coalesced"},
		),
		IndexEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_entries",
				Help:      "Number of entries in the persisted vector index.",
			},
		),
		EmbeddingLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "embedding_batch_seconds",
				Help:      "Embedding batch latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_cycle_timestamp_seconds",
				Help:      "Unix time of the last cycle that finished without error.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CyclesTotal,
		m.CycleDuration,
		m.ChunksTotal,
		m.SourcesTotal,
		m.ChangesTotal,
		m.TriggersTotal,
		m.IndexEntries,
		m.EmbeddingLatency,
		m.LastSuccess,
	)

	return m
}

// ObserveCycle records the counts of a finished cycle.
func (m *Metrics) ObserveCycle(result *domain.CycleResult, err error) {
	switch {
	case err != nil:
		m.CyclesTotal.WithLabelValues("error").Inc()
	case result != nil && result.NoOp:
		m.CyclesTotal.WithLabelValues("noop").Inc()
	default:
		m.CyclesTotal.WithLabelValues("indexed").Inc()
	}
	if result == nil {
		return
	}

	m.CycleDuration.Observe(result.Duration.Seconds())

	m.ChunksTotal.WithLabelValues("indexed").Add(float64(result.ChunksIndexed))
	m.ChunksTotal.WithLabelValues("duplicate").Add(float64(result.ChunksDuplicate))
	m.ChunksTotal.WithLabelValues("filtered").Add(float64(result.ChunksFiltered))
	m.ChunksTotal.WithLabelValues("failed").Add(float64(result.ChunksFailed))

	m.SourcesTotal.WithLabelValues(string(domain.LoadStatusLoaded)).Add(float64(result.SourcesLoaded))
	m.SourcesTotal.WithLabelValues(string(domain.LoadStatusUnchanged)).Add(float64(result.SourcesUnchanged))
	m.SourcesTotal.WithLabelValues(string(domain.LoadStatusSkipped)).Add(float64(result.SourcesSkipped))
	m.SourcesTotal.WithLabelValues(string(domain.LoadStatusFailed)).Add(float64(result.SourcesFailed))

	if err == nil {
		m.LastSuccess.Set(float64(result.StartedAt.Add(result.Duration).Unix()))
	}
}

// ObserveChange counts a filesystem change.
func (m *Metrics) ObserveChange(change domain.ChangeType) {
	m.ChangesTotal.WithLabelValues(string(change)).Inc()
}

// ObserveTrigger counts a cycle trigger.
func (m *Metrics) ObserveTrigger(reason string, coalesced bool) {
	label := "false"
	if coalesced {
		label = "true"
	}
	m.TriggersTotal.WithLabelValues(reason, label).Inc()
}

// ObserveIndexSize sets the index entry gauge.
func (m *Metrics) ObserveIndexSize(entries int) {
	m.IndexEntries.Set(float64(entries))
}

// ObserveEmbedding records one embedding batch latency.
func (m *Metrics) ObserveEmbedding(_ int, elapsed time.Duration) {
	m.EmbeddingLatency.Observe(elapsed.Seconds())
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics on addr until Shutdown.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics HTTP server.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting up to the context deadline for scrapes to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
