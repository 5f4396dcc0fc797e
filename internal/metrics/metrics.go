// Package metrics exposes Prometheus instrumentation for the
// fingerprinting pipeline and the matcher's session engine. Callers
// that don't care about metrics can pass a nil *Manager everywhere
// these are accepted — every method on Manager is nil-safe.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every metric the pipeline and matcher report.
type Manager struct {
	// Pipeline metrics.
	FramesFFTFailedTotal        prometheus.Counter
	PeaksDetectedTotal          prometheus.Counter
	LongFramesEmittedTotal      prometheus.Counter
	SignaturePointsEmittedTotal prometheus.Counter

	// Matcher metrics.
	SessionsActive          prometheus.Gauge
	SessionsCreatedTotal     prometheus.Counter
	SessionsMergedTotal      prometheus.Counter
	SessionsEvictedTotal     prometheus.Counter
	SessionsExpiredTotal     prometheus.Counter
	MatchesEmittedTotal      prometheus.Counter
	MatchBatchDuration       prometheus.Histogram
}

var (
	instance *Manager
	once     sync.Once
)

// GetManager returns the global metrics manager, registered against
// the default Prometheus registry on first use.
func GetManager() *Manager {
	once.Do(func() {
		instance = New(prometheus.DefaultRegisterer)
	})
	return instance
}

// New builds a Manager registered against the given registerer. Tests
// that construct multiple matchers in the same process should pass a
// fresh prometheus.NewRegistry() to avoid "duplicate metrics
// collector registration" panics on the default registry.
func New(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		FramesFFTFailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_fft_frames_failed_total",
			Help: "Total number of short frames dropped after an FFT primitive failure",
		}),
		PeaksDetectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_peaks_detected_total",
			Help: "Total number of spectral peaks kept after quota redistribution",
		}),
		LongFramesEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_long_frames_emitted_total",
			Help: "Total number of long frames flushed to hash computation",
		}),
		SignaturePointsEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_signature_points_emitted_total",
			Help: "Total number of SignaturePoints produced by hash computation",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fingerprint_matcher_sessions_active",
			Help: "Number of match sessions currently held by the matcher",
		}),
		SessionsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_matcher_sessions_created_total",
			Help: "Total number of match sessions created",
		}),
		SessionsMergedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_matcher_sessions_merged_total",
			Help: "Total number of sessions absorbed into another via offset-tolerance merge",
		}),
		SessionsEvictedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_matcher_sessions_evicted_total",
			Help: "Total number of sessions evicted on capacity pressure",
		}),
		SessionsExpiredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_matcher_sessions_expired_total",
			Help: "Total number of sessions reaped after matchExpireTime",
		}),
		MatchesEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingerprint_matches_emitted_total",
			Help: "Total number of MatchResults emitted",
		}),
		MatchBatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fingerprint_matcher_batch_duration_seconds",
			Help:    "Time spent processing one query-signature batch of hash lookups",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncFFTFailure is a nil-safe helper for the FFT stage.
func (m *Manager) IncFFTFailure() {
	if m != nil {
		m.FramesFFTFailedTotal.Inc()
	}
}

// AddPeaks is a nil-safe helper for peak detection.
func (m *Manager) AddPeaks(n int) {
	if m != nil {
		m.PeaksDetectedTotal.Add(float64(n))
	}
}

// IncLongFrame is a nil-safe helper for long-frame building.
func (m *Manager) IncLongFrame() {
	if m != nil {
		m.LongFramesEmittedTotal.Inc()
	}
}

// AddSignaturePoints is a nil-safe helper for hash computation.
func (m *Manager) AddSignaturePoints(n int) {
	if m != nil {
		m.SignaturePointsEmittedTotal.Add(float64(n))
	}
}

// SetSessionsActive is a nil-safe gauge setter for the matcher.
func (m *Manager) SetSessionsActive(n int) {
	if m != nil {
		m.SessionsActive.Set(float64(n))
	}
}

func (m *Manager) IncSessionsCreated() {
	if m != nil {
		m.SessionsCreatedTotal.Inc()
	}
}

func (m *Manager) IncSessionsMerged() {
	if m != nil {
		m.SessionsMergedTotal.Inc()
	}
}

func (m *Manager) IncSessionsEvicted() {
	if m != nil {
		m.SessionsEvictedTotal.Inc()
	}
}

func (m *Manager) IncSessionsExpired() {
	if m != nil {
		m.SessionsExpiredTotal.Inc()
	}
}

func (m *Manager) IncMatchesEmitted() {
	if m != nil {
		m.MatchesEmittedTotal.Inc()
	}
}

// ObserveBatchDuration is a nil-safe histogram observer.
func (m *Manager) ObserveBatchDuration(seconds float64) {
	if m != nil {
		m.MatchBatchDuration.Observe(seconds)
	}
}
