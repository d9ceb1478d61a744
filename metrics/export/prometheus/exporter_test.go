package prometheus

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	credcore "github.com/credware/credcore"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot credcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() credcore.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := credcore.MetricsSnapshot{
		Counters:   make(map[credcore.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[credcore.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestNewCollectorRejectsNilSource(t *testing.T) {
	if _, err := NewCollectorFromSource(nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestCollectorExposesCounters(t *testing.T) {
	src := &fakeSource{
		snapshot: credcore.MetricsSnapshot{
			Counters: map[credcore.MetricID]uint64{
				credcore.MetricLoginSuccess: 3,
				credcore.MetricLoginFailure: 2,
			},
		},
		dropped: 1,
	}

	collector, err := NewCollectorFromSource(src)
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	expected := `
# HELP credcore_login_success_total Successful login attempts.
# TYPE credcore_login_success_total counter
credcore_login_success_total 3
# HELP credcore_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE credcore_audit_dropped_total counter
credcore_audit_dropped_total 1
`
	err = testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"credcore_login_success_total",
		"credcore_audit_dropped_total",
	)
	if err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	src := &fakeSource{
		snapshot: credcore.MetricsSnapshot{
			Histograms: map[credcore.MetricID][]uint64{
				credcore.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
	}

	collector, err := NewCollectorFromSource(src)
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	expected := `
# HELP credcore_verify_latency_seconds Password verification latency histogram.
# TYPE credcore_verify_latency_seconds histogram
credcore_verify_latency_seconds_bucket{le="0.005"} 1
credcore_verify_latency_seconds_bucket{le="0.01"} 2
credcore_verify_latency_seconds_bucket{le="0.025"} 3
credcore_verify_latency_seconds_bucket{le="0.05"} 4
credcore_verify_latency_seconds_bucket{le="0.1"} 5
credcore_verify_latency_seconds_bucket{le="0.25"} 6
credcore_verify_latency_seconds_bucket{le="0.5"} 7
credcore_verify_latency_seconds_bucket{le="+Inf"} 8
credcore_verify_latency_seconds_sum 0
credcore_verify_latency_seconds_count 8
`
	err = testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"credcore_verify_latency_seconds",
	)
	if err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestExporterHandlerServesMetrics(t *testing.T) {
	src := &fakeSource{
		snapshot: credcore.MetricsSnapshot{
			Counters: map[credcore.MetricID]uint64{
				credcore.MetricLoginSuccess: 7,
			},
		},
	}

	exporter, err := NewExporterFromSource(src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	exporter.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "credcore_login_success_total 7") {
		t.Fatalf("body missing login success counter:\n%s", body)
	}
}

func TestCollectorConcurrentCollect(t *testing.T) {
	src := &fakeSource{
		snapshot: credcore.MetricsSnapshot{
			Counters: map[credcore.MetricID]uint64{
				credcore.MetricLoginSuccess: 1,
			},
		},
	}

	collector, err := NewCollectorFromSource(src)
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[credcore.MetricLoginSuccess] = v
			src.mu.Unlock()

			_ = testutil.CollectAndCount(collector)
		}(uint64(i + 1))
	}
	wg.Wait()
}
