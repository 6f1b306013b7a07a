package haptic

import "github.com/ehrlich-b/go-haptic/internal/constants"

// Re-export constants for the public API.
const (
	LightMagnitude  = constants.LightMagnitude
	MediumMagnitude = constants.MediumMagnitude
	StrongMagnitude = constants.StrongMagnitude

	MinAmplitude = constants.MinAmplitude
	MaxAmplitude = constants.MaxAmplitude

	MaxWaveformSteps      = constants.MaxWaveformSteps
	VibratorCalibValueMax = constants.VibratorCalibValueMax

	DefaultDevicePath      = constants.DefaultDevicePath
	DefaultLocalSocketPath = constants.DefaultLocalSocketPath
	DefaultRpmsgSocketPath = constants.DefaultRpmsgSocketPath
	DefaultStatePath       = constants.DefaultStatePath

	StrengthLight   = constants.StrengthLight
	StrengthMedium  = constants.StrengthMedium
	StrengthStrong  = constants.StrengthStrong
	StrengthDefault = constants.StrengthDefault

	IntensityLow    = constants.IntensityLow
	IntensityMedium = constants.IntensityMedium
	IntensityHigh   = constants.IntensityHigh
	IntensityOff    = constants.IntensityOff
)
