// Package constants holds default configuration and timing constants shared
// across the haptic daemon's internal packages.
package constants

import "time"

// Magnitude band written to the driver's gain field, in the 0..0x7FFF range
// the FF framework uses. The service restricts itself to the upper band so a
// "light" effect is still noticeable.
const (
	LightMagnitude  = 0x3FFF
	MediumMagnitude = 0x5FFF
	StrongMagnitude = 0x7FFF
)

// Client-visible amplitude range.
const (
	MinAmplitude = 0
	MaxAmplitude = 255
)

// MaxWaveformSteps bounds a waveform's timings/amplitudes arrays (spec.md §3).
const MaxWaveformSteps = 24

// VibratorCalibValueMax bounds the calibration blob exchanged by Calibrate /
// SetCalibValue.
const VibratorCalibValueMax = 16

// IndefiniteSegmentMs is the sentinel duration used by the playback engine
// when a run of nonzero-amplitude steps wraps back on itself without ever
// reaching an amplitude-zero boundary (spec.md §4.2, total_on_duration).
const IndefiniteSegmentMs = 1000

// IntensityPersistKey is the single key under which the current intensity is
// persisted (spec.md §6).
const IntensityPersistKey = "persist.vibrator_mode"

// DefaultDevicePath is the FF character device opened at bootstrap.
const DefaultDevicePath = "/dev/input/event_ff"

// Default listen addresses for the dual transports (spec.md §4.5, §9).
const (
	DefaultLocalSocketPath = "/dev/socket/vibratord"
	DefaultRpmsgSocketPath = "/dev/socket/vibratord-rpmsg"
)

// DefaultStatePath is the persisted-intensity/calibration file's default
// location (spec.md §6, persist.vibrator_mode).
const DefaultStatePath = "/data/misc/vibrator/state.cbor"

// DeviceOpenRetryInterval / DeviceOpenRetries bound how long bootstrap waits
// for the FF device node to appear, mirroring the teacher's udev-settle
// retry loop for its character device.
const (
	DeviceOpenRetryInterval = 100 * time.Millisecond
	DeviceOpenRetries       = 50
)

// DelayQuantum is the chunk size used by the cancelable step delay so that a
// force-stop request is noticed promptly even mid-step (spec.md §4.2, §5).
const DelayQuantum = 20 * time.Millisecond

// Strength enumerates the PredefinedEffect command's strength parameter
// (spec.md §3). DefaultES leaves the adapter's current magnitude unchanged.
const (
	StrengthLight uint8 = iota
	StrengthMedium
	StrengthStrong
	StrengthDefault
)

// Intensity enumerates the user-level master intensity preference (spec.md
// §3, §4.3, GLOSSARY).
const (
	IntensityLow uint8 = iota
	IntensityMedium
	IntensityHigh
	IntensityOff
)
