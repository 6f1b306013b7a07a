// Package interfaces provides internal interface definitions for go-haptic.
// These are separate from the public interfaces to avoid circular imports
// between the root package and internal packages.
package interfaces

// EffectDevice defines the interface the dispatcher and playback engine use
// to drive the underlying FF-capable input device. A real implementation
// (internal/ffdev) wraps a single open /dev/input/eventN file descriptor;
// MockEffectDevice in testing.go implements it for tests.
type EffectDevice interface {
	// UploadConstant uploads (or re-uploads, if id >= 0) a constant-force
	// effect at the given level and play length, returning the effect id
	// the kernel assigned.
	UploadConstant(id int16, level int16, playLengthMs uint16) (int16, error)

	// UploadPeriodic uploads a periodic custom-waveform effect at the given
	// magnitude, carrying effectID as its custom data (spec.md §4.1:
	// custom-data = [effectID, 0, 0]). Returns the assigned slot id and the
	// driver's predicted total-on duration in milliseconds, recovered from
	// the custom data buffer the kernel writes back into.
	UploadPeriodic(id int16, effectID int32, magnitude int16, playLengthMs uint16) (assignedID int16, predictedMs uint32, err error)

	// Play starts (value=1) or stops (value=0) the effect with the given id.
	Play(id int16, value int32) error

	// SetGain writes the device-wide FF_GAIN effect.
	SetGain(gain uint16) error

	// Unload frees an effect id previously returned by an Upload* call.
	Unload(id int16) error

	// Capabilities returns the EVIOCGBIT(EV_FF, ...) bitmap advertised by
	// the device.
	Capabilities() ([]byte, error)

	// Close releases the underlying file descriptor.
	Close() error
}

// Logger is the logging contract used across dispatch, playback and
// transport. internal/logging's default logger and the charmbracelet/log
// adapter constructed in cmd/vibratord both satisfy it.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer is the metrics collection interface. Implementations must be
// thread-safe: methods are called from both the event loop goroutine and
// the playback worker goroutine.
type Observer interface {
	ObserveCommand(kind uint8, latencyNs uint64, success bool)
	ObserveDeviceError(code int, errno int)
	ObservePlaybackStep(amplitude uint8, durationMs uint32)
}

// IntensityStore persists the single current-intensity value (and the
// calibration blob) across restarts (spec.md §4.3, §6). internal/persist
// implements it with a CBOR-encoded file; MockStore implements it for
// tests.
type IntensityStore interface {
	// LoadIntensity reports the last persisted intensity and whether a
	// value had ever been saved (found=false means the caller should fall
	// back to the Medium default, spec.md §9).
	LoadIntensity() (intensity uint8, found bool, err error)
	SaveIntensity(intensity uint8) error
	LoadCalibration() ([]byte, error)
	SaveCalibration(data []byte) error
}
