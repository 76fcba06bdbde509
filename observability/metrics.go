package observability

import (
	"fmt"
	"math"
	"math/big"
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

	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "peerswap",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "peerswap",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "peerswap",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "peerswap",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
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

// Observe records the outcome of a JSON-RPC call. code is the JSON-RPC error
// code, zero on success.
func (m *moduleMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" so dashboards remain consistent.
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// EngineMetrics tracks executions committed by the node.
type EngineMetrics struct {
	executions *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	volume     *prometheus.CounterVec
	openOffers prometheus.Gauge
	height     prometheus.Gauge
}

// Engine returns the singleton registry for engine executions.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			executions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "peerswap",
				Subsystem: "engine",
				Name:      "executions_total",
				Help:      "Count of executions segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "peerswap",
				Subsystem: "engine",
				Name:      "execution_duration_seconds",
				Help:      "Latency distribution for executions including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "peerswap",
				Subsystem: "engine",
				Name:      "transfer_volume_total",
				Help:      "Base units moved by settlement instructions segmented by asset and kind.",
			}, []string{"asset", "kind"}),
			openOffers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "peerswap",
				Subsystem: "engine",
				Name:      "open_offers",
				Help:      "Offers currently held in the store.",
			}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "peerswap",
				Subsystem: "engine",
				Name:      "height",
				Help:      "Logical block height of the last committed execution.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.executions,
			engineRegistry.latency,
			engineRegistry.volume,
			engineRegistry.openOffers,
			engineRegistry.height,
		)
	})
	return engineRegistry
}

// Observe records an execution attempt.
func (m *EngineMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.executions.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordTransfer adds a settlement instruction to the volume counter. kind
// distinguishes payouts from fees and refunds.
func (m *EngineMetrics) RecordTransfer(asset, kind string, amount *big.Int) {
	if m == nil {
		return
	}
	m.volume.WithLabelValues(labelAsset(asset), kind).Add(bigToFloat(amount))
}

// AddOpenOffers adjusts the open offer gauge.
func (m *EngineMetrics) AddOpenOffers(delta int) {
	if m == nil {
		return
	}
	m.openOffers.Add(float64(delta))
}

// SetOpenOffers overwrites the open offer gauge.
func (m *EngineMetrics) SetOpenOffers(count int) {
	if m == nil {
		return
	}
	m.openOffers.Set(float64(count))
}

// SetHeight records the committed logical height.
func (m *EngineMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil || value.Sign() <= 0 {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
