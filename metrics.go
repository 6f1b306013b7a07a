package haptic

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-haptic/internal/interfaces"
)

// Metrics tracks operational statistics for the haptic daemon: per-command
// counts and latency, device-level error counts, and playback-step activity
// (spec.md §2's bootstrap item, supplemented feature — the teacher exposes
// an analogous per-I/O-operation Metrics for its block device).
type Metrics struct {
	CommandCount  atomic.Uint64
	CommandErrors atomic.Uint64
	CommandLatencyNs atomic.Uint64

	DeviceErrors atomic.Uint64

	PlaybackSteps   atomic.Uint64
	PlaybackOnTimeMs atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveCommand implements interfaces.Observer.
func (m *Metrics) ObserveCommand(kind uint8, latencyNs uint64, success bool) {
	m.CommandCount.Add(1)
	m.CommandLatencyNs.Add(latencyNs)
	if !success {
		m.CommandErrors.Add(1)
	}
}

// ObserveDeviceError implements interfaces.Observer.
func (m *Metrics) ObserveDeviceError(code int, errno int) {
	m.DeviceErrors.Add(1)
}

// ObservePlaybackStep implements interfaces.Observer.
func (m *Metrics) ObservePlaybackStep(amplitude uint8, durationMs uint32) {
	m.PlaybackSteps.Add(1)
	m.PlaybackOnTimeMs.Add(uint64(durationMs))
}

// MetricsSnapshot is a point-in-time copy of Metrics' counters.
type MetricsSnapshot struct {
	CommandCount     uint64
	CommandErrors    uint64
	AvgCommandLatencyNs uint64
	DeviceErrors     uint64
	PlaybackSteps    uint64
	PlaybackOnTimeMs uint64
	UptimeNs         uint64
}

// Snapshot returns a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.CommandCount.Load()
	snap := MetricsSnapshot{
		CommandCount:     count,
		CommandErrors:    m.CommandErrors.Load(),
		DeviceErrors:     m.DeviceErrors.Load(),
		PlaybackSteps:    m.PlaybackSteps.Load(),
		PlaybackOnTimeMs: m.PlaybackOnTimeMs.Load(),
		UptimeNs:         uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	if count > 0 {
		snap.AvgCommandLatencyNs = m.CommandLatencyNs.Load() / count
	}
	return snap
}

// Reset zeroes all counters. Useful for testing.
func (m *Metrics) Reset() {
	m.CommandCount.Store(0)
	m.CommandErrors.Store(0)
	m.CommandLatencyNs.Store(0)
	m.DeviceErrors.Store(0)
	m.PlaybackSteps.Store(0)
	m.PlaybackOnTimeMs.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}

// NoOpObserver discards every observation. Used where no metrics are wired.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(uint8, uint64, bool)  {}
func (NoOpObserver) ObserveDeviceError(int, int)         {}
func (NoOpObserver) ObservePlaybackStep(uint8, uint32)   {}

var (
	_ interfaces.Observer = (*Metrics)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
