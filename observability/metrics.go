package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	issuanceMetricsOnce sync.Once
	issuanceRegistry    *IssuanceMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// handler activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route, method and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route, method and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "chronicles",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied route and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(route, reason string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(route, reason).Inc()
}

// IssuanceMetrics captures the health of the issuance engine.
type IssuanceMetrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	mints           *prometheus.CounterVec
	feesCollected   *prometheus.CounterVec
	supplyRemaining *prometheus.GaugeVec
	paused          prometheus.Gauge
}

// Issuance exposes the singleton metrics registry for the issuance engine.
func Issuance() *IssuanceMetrics {
	issuanceMetricsOnce.Do(func() {
		issuanceRegistry = &IssuanceMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "operations_total",
				Help:      "Issuance operations segmented by operation and terminal error kind.",
			}, []string{"operation", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for issuance operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "mints_total",
				Help:      "Finalized mints segmented by collection role.",
			}, []string{"role"}),
			feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "fees_collected_total",
				Help:      "Fees collected in base units segmented by beneficiary.",
			}, []string{"beneficiary"}),
			supplyRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "supply_remaining",
				Help:      "Remaining mint slots for capped collections.",
			}, []string{"role"}),
			paused: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chronicles",
				Subsystem: "issuance",
				Name:      "paused",
				Help:      "Whether issuance is paused (1) or active (0).",
			}),
		}
		prometheus.MustRegister(
			issuanceRegistry.operations,
			issuanceRegistry.latency,
			issuanceRegistry.mints,
			issuanceRegistry.feesCollected,
			issuanceRegistry.supplyRemaining,
			issuanceRegistry.paused,
		)
	})
	return issuanceRegistry
}

// ObserveOperation records one terminal outcome. kind is empty on success.
func (m *IssuanceMetrics) ObserveOperation(operation, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if kind == "" {
		kind = "ok"
	}
	m.operations.WithLabelValues(op, kind).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordMint counts a finalized mint together with the fees it moved.
func (m *IssuanceMetrics) RecordMint(role string, treasuryFee, antiscamFee uint64) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(labelRole(role)).Inc()
	m.feesCollected.WithLabelValues("treasury").Add(float64(treasuryFee))
	m.feesCollected.WithLabelValues("antiscam").Add(float64(antiscamFee))
}

// SetSupplyRemaining publishes the remaining slots for a capped collection.
func (m *IssuanceMetrics) SetSupplyRemaining(role string, remaining uint64) {
	if m == nil {
		return
	}
	m.supplyRemaining.WithLabelValues(labelRole(role)).Set(float64(remaining))
}

// SetPaused mirrors the pause flag.
func (m *IssuanceMetrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

func labelRole(role string) string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
