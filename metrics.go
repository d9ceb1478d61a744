package credcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a single counter or histogram tracked by the engine.
type MetricID uint16

const (
	// MetricLoginSuccess counts credential verifications that produced a token pair.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login attempts, uniform across causes.
	MetricLoginFailure
	// MetricLoginLocked counts login attempts denied by an active lockout.
	MetricLoginLocked
	// MetricRefreshSuccess counts successful refresh rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricSessionCreated counts newly persisted sessions.
	MetricSessionCreated
	// MetricSessionRevoked counts sessions removed outside plain logout.
	MetricSessionRevoked
	// MetricLogout counts single-session logout operations.
	MetricLogout
	// MetricLogoutAll counts logout-all operations.
	MetricLogoutAll
	// MetricVerificationRequest counts issued email verification tokens.
	MetricVerificationRequest
	// MetricVerificationSuccess counts confirmed email verifications.
	MetricVerificationSuccess
	// MetricVerificationFailure counts rejected verification confirmations.
	MetricVerificationFailure
	// MetricResetRequest counts password reset requests, silent ones included.
	MetricResetRequest
	// MetricResetSuccess counts confirmed password resets.
	MetricResetSuccess
	// MetricResetFailure counts rejected reset confirmations.
	MetricResetFailure
	// MetricPasswordChangeSuccess counts completed password updates.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeInvalidOld counts password updates rejected on the old password.
	MetricPasswordChangeInvalidOld
	// MetricEmailChange counts completed email updates.
	MetricEmailChange
	// MetricPasswordRehash counts transparent hash upgrades on login.
	MetricPasswordRehash
	// MetricEnvelopeCorrupt counts stored hashes that failed envelope parsing.
	MetricEnvelopeCorrupt
	// MetricMailerFailure counts delivery errors reported by the mailer.
	MetricMailerFailure
	// MetricVerifyLatency is the histogram of password verification latency.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each slot on its own cache line to avoid false sharing.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics stores lock-free counters and latency histograms for the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds metric storage according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id. Safe on a nil or disabled receiver.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histograms at once. The returned maps
// are owned by the caller.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
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
