package playback

import "github.com/ehrlich-b/go-haptic/internal/constants"

// scale maps a waveform step's raw amplitude (0..255) through the current
// intensity preference (spec.md §4.3). Off always yields 0, gated by
// shouldVibrate rather than the 1.0 factor table so the two stay in sync.
func scale(raw uint8, intensity uint8) uint8 {
	if !shouldVibrate(intensity) {
		return 0
	}
	var factor float64
	switch intensity {
	case constants.IntensityLow:
		factor = 0.3
	case constants.IntensityHigh:
		factor = 1.0
	default: // IntensityMedium and any unrecognized value
		factor = 0.6
	}
	scaled := float64(raw) * factor
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled)
}

// shouldVibrate reports whether the current intensity permits any playback
// at all (spec.md §4.3).
func shouldVibrate(intensity uint8) bool {
	return intensity != constants.IntensityOff
}

// Scale exposes scale to other packages (dispatch's Start handler needs it
// to set_gain(scale(current_amplitude, intensity)) per spec.md §4.4).
func Scale(raw uint8, intensity uint8) uint8 {
	return scale(raw, intensity)
}

// ShouldRepeat rewrites a waveform's repeat index to -1 when every timing
// from repeat through the end of the array is zero, so the dispatcher never
// spawns a worker that would loop forever through a silent tail (spec.md
// §4.3, §9: applied once at dispatch time, before the worker is spawned).
func ShouldRepeat(repeat int8, timings []uint32, length uint8) int8 {
	if repeat < 0 || int(repeat) >= int(length) {
		return repeat
	}
	for i := int(repeat); i < int(length); i++ {
		if timings[i] != 0 {
			return repeat
		}
	}
	return -1
}
