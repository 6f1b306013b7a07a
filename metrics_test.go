package haptic

import (
	"testing"
	"time"
)

func TestMetricsObserveCommand(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.CommandCount != 0 {
		t.Errorf("expected 0 initial commands, got %d", snap.CommandCount)
	}

	m.ObserveCommand(0, 1_000_000, true)
	m.ObserveCommand(1, 3_000_000, true)
	m.ObserveCommand(2, 2_000_000, false)

	snap = m.Snapshot()
	if snap.CommandCount != 3 {
		t.Errorf("CommandCount = %d, want 3", snap.CommandCount)
	}
	if snap.CommandErrors != 1 {
		t.Errorf("CommandErrors = %d, want 1", snap.CommandErrors)
	}
	if snap.AvgCommandLatencyNs != 2_000_000 {
		t.Errorf("AvgCommandLatencyNs = %d, want 2000000", snap.AvgCommandLatencyNs)
	}
}

func TestMetricsObserveDeviceError(t *testing.T) {
	m := NewMetrics()
	m.ObserveDeviceError(1, 5)
	m.ObserveDeviceError(1, 5)

	snap := m.Snapshot()
	if snap.DeviceErrors != 2 {
		t.Errorf("DeviceErrors = %d, want 2", snap.DeviceErrors)
	}
}

func TestMetricsObservePlaybackStep(t *testing.T) {
	m := NewMetrics()
	m.ObservePlaybackStep(128, 50)
	m.ObservePlaybackStep(255, 100)

	snap := m.Snapshot()
	if snap.PlaybackSteps != 2 {
		t.Errorf("PlaybackSteps = %d, want 2", snap.PlaybackSteps)
	}
	if snap.PlaybackOnTimeMs != 150 {
		t.Errorf("PlaybackOnTimeMs = %d, want 150", snap.PlaybackOnTimeMs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*uint64(time.Millisecond) {
		t.Errorf("UptimeNs = %d, want >= 10ms", snap.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.ObserveCommand(0, 1_000_000, false)
	m.ObserveDeviceError(1, 5)
	m.ObservePlaybackStep(128, 50)

	if snap := m.Snapshot(); snap.CommandCount == 0 {
		t.Fatal("expected a recorded command before reset")
	}

	m.Reset()

	snap := m.Snapshot()
	if snap.CommandCount != 0 || snap.CommandErrors != 0 || snap.DeviceErrors != 0 || snap.PlaybackSteps != 0 || snap.PlaybackOnTimeMs != 0 {
		t.Errorf("Reset left nonzero counters: %+v", snap)
	}
}

func TestNoOpObserver(t *testing.T) {
	var o NoOpObserver
	// Must not panic.
	o.ObserveCommand(0, 0, true)
	o.ObserveDeviceError(0, 0)
	o.ObservePlaybackStep(0, 0)
}
