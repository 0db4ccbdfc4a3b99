package goguard

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by goguard APIs.
//
// MetricID instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricValidateSuccess is an exported constant or variable used by the session guard.
	MetricValidateSuccess MetricID = iota
	// MetricValidateUnauthorized is an exported constant or variable used by the session guard.
	MetricValidateUnauthorized
	// MetricValidateError is an exported constant or variable used by the session guard.
	MetricValidateError
	// MetricValidateNetworkError is an exported constant or variable used by the session guard.
	MetricValidateNetworkError
	// MetricRefreshSuccess is an exported constant or variable used by the session guard.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session guard.
	MetricRefreshFailure
	// MetricRefreshShared is an exported constant or variable used by the session guard.
	MetricRefreshShared
	// MetricRequestRetry is an exported constant or variable used by the session guard.
	MetricRequestRetry
	// MetricRequestUnauthorized is an exported constant or variable used by the session guard.
	MetricRequestUnauthorized
	// MetricPaymentSuccess is an exported constant or variable used by the session guard.
	MetricPaymentSuccess
	// MetricPaymentBlocked is an exported constant or variable used by the session guard.
	MetricPaymentBlocked
	// MetricPaymentRejected is an exported constant or variable used by the session guard.
	MetricPaymentRejected
	// MetricCSRFUnavailable is an exported constant or variable used by the session guard.
	MetricCSRFUnavailable
	// MetricAccessAuthorized is an exported constant or variable used by the session guard.
	MetricAccessAuthorized
	// MetricAccessUnauthenticated is an exported constant or variable used by the session guard.
	MetricAccessUnauthenticated
	// MetricAccessPermissionDenied is an exported constant or variable used by the session guard.
	MetricAccessPermissionDenied
	// MetricAccessRoleDenied is an exported constant or variable used by the session guard.
	MetricAccessRoleDenied
	// MetricAuthorityRefresh is an exported constant or variable used by the session guard.
	MetricAuthorityRefresh
	// MetricLogout is an exported constant or variable used by the session guard.
	MetricLogout
	// MetricCredentialsWiped is an exported constant or variable used by the session guard.
	MetricCredentialsWiped
	// MetricValidateLatency is an exported constant or variable used by the session guard.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and an optional latency histogram for
// the session-validation hot path.
//
//	Docs: docs/metrics.md
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether metric collection is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the validate latency histogram is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one validate-path latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of the counter identified by id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
