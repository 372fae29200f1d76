package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	securityEvents  *prometheus.CounterVec
	alertsSent      prometheus.Counter
	alertsDropped   prometheus.Counter
	retentionMoved  *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	securityEventCount   uint64
	alertSentCount       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	securityEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "security_events_total",
		Help: "Total security events recorded",
	}, []string{"type", "severity"})

	alertsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "security_alerts_sent_total",
		Help: "Total security alerts delivered",
	})

	alertsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "security_alerts_suppressed_total",
		Help: "Total security alerts suppressed by gating or cooldown",
	})

	retentionMoved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_records_total",
		Help: "Records archived or deleted by retention runs",
	}, []string{"data_type", "phase"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, securityEvents, alertsSent, alertsDropped, retentionMoved, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		securityEvents:  securityEvents,
		alertsSent:      alertsSent,
		alertsDropped:   alertsDropped,
		retentionMoved:  retentionMoved,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats
// for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordSecurityEvent counts one recorded security event.
func (m *MetricsService) RecordSecurityEvent(eventType, severity string) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(eventType, severity).Inc()
	atomic.AddUint64(&m.securityEventCount, 1)
}

// RecordAlert counts one alert outcome.
func (m *MetricsService) RecordAlert(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.alertsSent.Inc()
		atomic.AddUint64(&m.alertSentCount, 1)
		return
	}
	m.alertsDropped.Inc()
}

// RecordRetention counts records moved by a retention run.
func (m *MetricsService) RecordRetention(dataType string, archived, deleted int) {
	if m == nil {
		return
	}
	if archived > 0 {
		m.retentionMoved.WithLabelValues(dataType, "archive").Add(float64(archived))
	}
	if deleted > 0 {
		m.retentionMoved.WithLabelValues(dataType, "delete").Add(float64(deleted))
	}
}

// SystemMetrics aggregates counters for the admin metrics endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SecurityEventsTotal      uint64    `json:"security_events_total"`
	AlertsSentTotal          uint64    `json:"alerts_sent_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// Snapshot returns aggregated metrics suitable for the admin endpoint.
func (m *MetricsService) Snapshot() SystemMetrics {
	if m == nil {
		return SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SecurityEventsTotal:      atomic.LoadUint64(&m.securityEventCount),
		AlertsSentTotal:          atomic.LoadUint64(&m.alertSentCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
