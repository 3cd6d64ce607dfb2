package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "tracking_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	resolveTotal   *prometheus.CounterVec
	resolveLatency *prometheus.HistogramVec

	trilaterationTotal *prometheus.CounterVec

	lookupTotal   *prometheus.CounterVec
	lookupLatency *prometheus.HistogramVec

	geofenceEventsTotal *prometheus.CounterVec
	publishErrorsTotal  *prometheus.CounterVec
)

// Init registers the tracking metrics with the default registry. Helpers are
// no-ops until Init has run.
func Init() {
	registerOnce.Do(func() {
		resolveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "resolve_total",
				Help: "Location resolutions by source and result",
			},
			[]string{"source", "result"},
		)
		resolveLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "resolve_latency_seconds",
				Help:    "Location resolution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)
		trilaterationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "trilateration_total",
				Help: "Trilateration attempts by outcome",
			},
			[]string{"outcome"},
		)
		lookupTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "lookup_total",
				Help: "External lookups by provider and result",
			},
			[]string{"provider", "result"},
		)
		lookupLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "lookup_latency_seconds",
				Help:    "External lookup latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		)
		geofenceEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "geofence_events_total",
				Help: "Geofence transition events by type",
			},
			[]string{"event"},
		)
		publishErrorsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "publish_errors_total",
				Help: "Failed publishes by channel",
			},
			[]string{"channel"},
		)

		prometheus.MustRegister(
			resolveTotal,
			resolveLatency,
			trilaterationTotal,
			lookupTotal,
			lookupLatency,
			geofenceEventsTotal,
			publishErrorsTotal,
		)
	})
}

// ObserveResolve records one location resolution.
func ObserveResolve(source string, err error, duration time.Duration) {
	if source == "" {
		source = "fusion"
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if resolveTotal != nil {
		resolveTotal.WithLabelValues(source, result).Inc()
	}
	if resolveLatency != nil {
		resolveLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// IncTrilateration counts a trilateration outcome ("converged", "fallback").
func IncTrilateration(outcome string) {
	if trilaterationTotal != nil {
		trilaterationTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookup records an external lookup call.
func ObserveLookup(provider string, ok bool, duration time.Duration) {
	result := resultSuccess
	if !ok {
		result = resultError
	}
	if lookupTotal != nil {
		lookupTotal.WithLabelValues(provider, result).Inc()
	}
	if lookupLatency != nil {
		lookupLatency.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// IncGeofenceEvent counts an emitted transition.
func IncGeofenceEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if geofenceEventsTotal != nil {
		geofenceEventsTotal.WithLabelValues(event).Inc()
	}
}

// IncPublishError counts a failed publish on channel ("rabbitmq", "mqtt").
func IncPublishError(channel string) {
	if publishErrorsTotal != nil {
		publishErrorsTotal.WithLabelValues(channel).Inc()
	}
}
