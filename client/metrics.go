package client

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records Prometheus metrics for executed calls. A nil *Metrics
// records nothing. It is safe for concurrent use.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	failuresTotal   *prometheus.CounterVec
	asyncInFlight   prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Registering twice on the
// same registerer panics, as with any promauto collector.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpstep_requests_total",
				Help: "Total number of HTTP round trips completed",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpstep_request_duration_seconds",
				Help:    "Duration of HTTP round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		failuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpstep_failures_total",
				Help: "Total number of failed calls by failure kind",
			},
			[]string{"kind"},
		),
		asyncInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "httpstep_async_in_flight",
				Help: "Number of asynchronous calls submitted but not yet delivered",
			},
		),
	}
}

func (m *Metrics) recordRoundTrip(method string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}

	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) recordFailure(err error) {
	if m == nil || err == nil {
		return
	}

	m.failuresTotal.WithLabelValues(failureKind(err)).Inc()
}

func (m *Metrics) asyncStart() {
	if m == nil {
		return
	}
	m.asyncInFlight.Inc()
}

func (m *Metrics) asyncEnd() {
	if m == nil {
		return
	}
	m.asyncInFlight.Dec()
}

// failureKind labels err by the error type it carries.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrCallback):
		return "callback"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMapping):
		return "mapping"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUnexpectedStatusCode):
		return "status"
	case errors.Is(err, ErrJSON):
		return "json"
	default:
		return "other"
	}
}
