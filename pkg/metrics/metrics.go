package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on their own registry
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal            prometheus.Counter
	RunDuration          prometheus.Histogram
	LastRunTimestamp     prometheus.Gauge
	BookingsAllocated    *prometheus.CounterVec
	BookingsNotAllocated *prometheus.CounterVec
	SkippedSlotsTotal    *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "boathire_allocation_runs_total",
				Help: "Total number of completed allocation runs",
			},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boathire_allocation_run_duration_seconds",
				Help:    "Allocation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "boathire_allocation_last_run_timestamp_seconds",
				Help: "Unix time the last allocation run completed",
			},
		),

		BookingsAllocated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boathire_bookings_allocated_total",
				Help: "Total number of bookings assigned a boat and battery",
			},
			[]string{"slot"},
		),

		BookingsNotAllocated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boathire_bookings_not_allocated_total",
				Help: "Total number of bookings a run could not assign",
			},
			[]string{"slot", "reason"},
		),

		SkippedSlotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boathire_skipped_slots_total",
				Help: "Total number of slot groups skipped because availability could not be read",
			},
			[]string{"slot"},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boathire_notifications_total",
				Help: "Total number of outbound notifications by channel and status",
			},
			[]string{"channel", "status"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boathire_http_requests_total",
				Help: "Total number of ops HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boathire_http_request_duration_seconds",
				Help:    "Ops HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) RecordAllocated(slot string) {
	m.BookingsAllocated.WithLabelValues(slot).Inc()
}

func (m *Metrics) RecordNotAllocated(slot, reason string) {
	m.BookingsNotAllocated.WithLabelValues(slot, reason).Inc()
}

// RecordRun records a finished run and the slots it skipped
func (m *Metrics) RecordRun(duration time.Duration, skippedSlots []string, finishedAt time.Time) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.LastRunTimestamp.Set(float64(finishedAt.Unix()))
	for _, slot := range skippedSlots {
		m.SkippedSlotsTotal.WithLabelValues(slot).Inc()
	}
}

func (m *Metrics) RecordNotification(channel, status string) {
	m.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
