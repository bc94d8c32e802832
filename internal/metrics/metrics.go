// Package metrics exposes prometheus instrumentation for the comfort hub server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comfort_hub"

// Metrics holds the server collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	decisionsTotal    *prometheus.CounterVec
	scheduleDegraded  *prometheus.CounterVec
	sunsetDuration    prometheus.Histogram
	sunsetErrors      prometheus.Counter
	archiveDropped    prometheus.Counter
	archiveBatches    *prometheus.CounterVec
	archiveRecords    prometheus.Counter
	archivePruned     prometheus.Counter
	archivePruneFails prometheus.Counter
	streamClients     prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Actuator decisions by actuator and state.",
		}, []string{"actuator", "state"}),
		scheduleDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_degraded_total",
			Help:      "Decisions where the light window could not be resolved.",
		}, []string{"reason"}),
		sunsetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sunset_lookup_duration_seconds",
			Help:      "Histogram of sunset service request durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		sunsetErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sunset_lookup_errors_total",
			Help:      "Total failed sunset lookups.",
		}),
		archiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Records dropped because the archive queue was full.",
		}),
		archiveBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_batches_total",
			Help:      "Archive batch inserts by result.",
		}, []string{"result"}),
		archiveRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_records_written_total",
			Help:      "Records written to the archive.",
		}),
		archivePruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_pruned_total",
			Help:      "Records removed by the retention cleaner.",
		}),
		archivePruneFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_prune_errors_total",
			Help:      "Failed retention passes.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Hubs currently connected over the websocket stream.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.decisionsTotal,
		m.scheduleDegraded,
		m.sunsetDuration,
		m.sunsetErrors,
		m.archiveDropped,
		m.archiveBatches,
		m.archiveRecords,
		m.archivePruned,
		m.archivePruneFails,
		m.streamClients,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// WrapHandler records request count and duration for route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DecisionMade(d models.Decision) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues("fan", string(d.Fan)).Inc()
	m.decisionsTotal.WithLabelValues("light", string(d.Light)).Inc()
}

func (m *Metrics) ScheduleDegraded(reason string) {
	if m == nil {
		return
	}
	m.scheduleDegraded.WithLabelValues(reason).Inc()
}

func (m *Metrics) SunsetLookup(duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.sunsetDuration.Observe(duration.Seconds())
	if !success {
		m.sunsetErrors.Inc()
	}
}

func (m *Metrics) ArchiveDropped() {
	if m == nil {
		return
	}
	m.archiveDropped.Inc()
}

func (m *Metrics) ArchiveFlushed(records int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.archiveBatches.WithLabelValues("error").Inc()
		return
	}
	m.archiveBatches.WithLabelValues("ok").Inc()
	m.archiveRecords.Add(float64(records))
}

func (m *Metrics) ArchivePruned(deleted int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.archivePruneFails.Inc()
		return
	}
	m.archivePruned.Add(float64(deleted))
}

func (m *Metrics) StreamConnected() {
	if m == nil {
		return
	}
	m.streamClients.Inc()
}

func (m *Metrics) StreamDisconnected() {
	if m == nil {
		return
	}
	m.streamClients.Dec()
}
