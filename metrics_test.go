package goguard

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoOps(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricValidateSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricValidateSuccess); got != 0 {
		t.Fatalf("counter = %d, want 0 when disabled", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("snapshot = %+v, want empty when disabled", snap)
	}
}

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	for i := 0; i < 5; i++ {
		m.Inc(MetricRefreshSuccess)
	}
	m.Inc(MetricLogout)

	if got := m.Value(MetricRefreshSuccess); got != 5 {
		t.Fatalf("refresh success = %d, want 5", got)
	}
	if got := m.Value(MetricLogout); got != 1 {
		t.Fatalf("logout = %d, want 1", got)
	}
	if got := m.Value(MetricValidateSuccess); got != 0 {
		t.Fatalf("untouched counter = %d, want 0", got)
	}
}

func TestMetricsLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := map[time.Duration]int{
		2 * time.Millisecond:   0,
		8 * time.Millisecond:   1,
		20 * time.Millisecond:  2,
		40 * time.Millisecond:  3,
		80 * time.Millisecond:  4,
		200 * time.Millisecond: 5,
		400 * time.Millisecond: 6,
		2 * time.Second:        7,
	}
	for d := range samples {
		m.Observe(MetricValidateLatency, d)
	}

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricValidateLatency]
	if !ok {
		t.Fatal("latency histogram missing from snapshot")
	}
	for d, idx := range samples {
		if buckets[idx] != 1 {
			t.Fatalf("bucket %d for sample %v = %d, want 1", idx, d, buckets[idx])
		}
	}
}

func TestMetricsObserveIgnoredWithoutLatencyFlag(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricValidateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("histograms = %+v, want none without the latency flag", snap.Histograms)
	}
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricValidateSuccess)

	snap := m.Snapshot()
	snap.Counters[MetricValidateSuccess] = 999

	if got := m.Value(MetricValidateSuccess); got != 1 {
		t.Fatalf("counter = %d after mutating snapshot, want 1", got)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.Inc(MetricAccessAuthorized)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricAccessAuthorized); got != goroutines*perGoroutine {
		t.Fatalf("counter = %d, want %d", got, goroutines*perGoroutine)
	}
}
