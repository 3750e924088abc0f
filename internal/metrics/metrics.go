package metrics

import "sync/atomic"

// MetricID identifies a single counter slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricCaptchaIssued
	MetricCaptchaFailure
	MetricCaptchaReplay
	MetricCodeIssued
	MetricCodeVerified
	MetricCodeInvalid
	MetricCodeExpired
	MetricCodeNotFound
	MetricResendBlocked
	MetricRateLimitHit
	MetricBruteForceDetected
	MetricDeliveryFailure
	MetricAlertSent
	MetricRegistrationSuccess
	MetricRegistrationFailure

	// MetricIDCount is the number of counter slots; keep last.
	MetricIDCount
)

// Config controls metrics collection.
type Config struct {
	Enabled bool
}

// Metrics holds atomic counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters [MetricIDCount]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id], 1)
}

func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id])
}

func (m *Metrics) Snapshot() Snapshot {
	var snap Snapshot
	if m == nil || !m.enabled {
		return snap
	}
	for i := range m.counters {
		snap.Counters[i] = atomic.LoadUint64(&m.counters[i])
	}
	return snap
}
