package ffdev

import (
	"sync"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// Capability bits returned by GetCapabilities, mirrored from the kernel's
// FF_CONSTANT/FF_PERIODIC/FF_GAIN codes so capability responses are
// self-describing rather than an opaque int (spec.md §5 supplemented
// features).
const (
	CapConstant int32 = 1 << iota
	CapPeriodic
	CapGain
)

// noEffect marks current_effect_slot == None (spec.md §3 invariant I1).
const noEffect int16 = -1

// Adapter is the FF device adapter of spec.md §2.1/§4.1: a stateful
// wrapper that owns the uploaded-effect slot, the current magnitude and
// amplitude, the discovered capability mask, and the current intensity,
// on top of a raw EffectDevice. Grounded on the teacher's
// internal/ctrl.Controller, which plays the same role (stateful wrapper
// around a raw device handle, logging each step) for ublk's control plane.
type Adapter struct {
	dev      interfaces.EffectDevice
	logger   interfaces.Logger
	observer interfaces.Observer

	mu                sync.Mutex
	currentEffectSlot int16
	currentMagnitude  int16
	currentAmplitude  uint8
	capabilities      int32
	intensity         uint8
}

// NewAdapter wraps dev. intensity starts at Medium; callers should call
// SetIntensity after loading any persisted value (spec.md §9).
func NewAdapter(dev interfaces.EffectDevice, logger interfaces.Logger, observer interfaces.Observer) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		dev:               dev,
		logger:            logger,
		observer:          observer,
		currentEffectSlot: noEffect,
		intensity:         constants.IntensityMedium,
	}
}

// Probe queries the device's FF capability bitmap and caches the resulting
// mask. A query error is returned unchanged; the caller decides what it
// means (bootstrap exits if neither FF_CONSTANT nor FF_PERIODIC is present,
// spec.md §7).
func (a *Adapter) Probe() (int32, error) {
	bitmap, err := a.dev.Capabilities()
	if err != nil {
		return 0, err
	}
	var caps int32
	if uapi.HasCapability(bitmap, uapi.FFConstant) {
		caps |= CapConstant
	}
	if uapi.HasCapability(bitmap, uapi.FFPeriodic) {
		caps |= CapPeriodic
	}
	if uapi.HasCapability(bitmap, uapi.FFGain) {
		caps |= CapGain
	}
	a.mu.Lock()
	a.capabilities = caps
	a.mu.Unlock()
	a.logger.Debugf("ffdev: capabilities=0x%x", caps)
	return caps, nil
}

// Capabilities returns the cached capability mask (spec.md §4.4 GetCapabilities).
func (a *Adapter) Capabilities() int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capabilities
}

// Intensity returns the currently stored intensity.
func (a *Adapter) Intensity() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.intensity
}

// SetIntensity stores the intensity on the adapter (persistence is the
// caller's responsibility — spec.md §4.4).
func (a *Adapter) SetIntensity(intensity uint8) {
	a.mu.Lock()
	a.intensity = intensity
	a.mu.Unlock()
}

// CurrentAmplitude returns the last client-set amplitude (spec.md §3 data model).
func (a *Adapter) CurrentAmplitude() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentAmplitude
}

// CurrentMagnitude returns the last magnitude written to the driver.
func (a *Adapter) CurrentMagnitude() int16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentMagnitude
}

// SetMagnitudeFromStrength applies strength_to_magnitude (spec.md §4.3):
// DefaultES leaves current_magnitude unchanged.
func (a *Adapter) SetMagnitudeFromStrength(strength uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch strength {
	case constants.StrengthLight:
		a.currentMagnitude = constants.LightMagnitude
	case constants.StrengthMedium:
		a.currentMagnitude = constants.MediumMagnitude
	case constants.StrengthStrong:
		a.currentMagnitude = constants.StrongMagnitude
	case constants.StrengthDefault:
		// leave current_magnitude unchanged
	}
}

// SetMagnitude stores an already-computed magnitude directly (used by
// Primitive, which maps its float amplitude linearly itself).
func (a *Adapter) SetMagnitude(magnitude int16) {
	a.mu.Lock()
	a.currentMagnitude = magnitude
	a.mu.Unlock()
}

// UploadAndStart implements spec.md §4.1's upload_and_start. effectID nil
// selects a constant effect; effectID non-nil selects a periodic-custom
// effect carrying that id as custom data. Returns the driver-reported (or
// requested) play length in milliseconds.
func (a *Adapter) UploadAndStart(effectID *int32, timeoutMs uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if timeoutMs == 0 {
		// The stop path: off() is upload_and_start(None, 0).
		if a.currentEffectSlot != noEffect {
			if err := a.dev.Unload(a.currentEffectSlot); err != nil {
				a.currentEffectSlot = noEffect
				return 0, err
			}
			a.currentEffectSlot = noEffect
		}
		return 0, nil
	}

	if a.currentEffectSlot != noEffect {
		// The driver disallows overlapping effects on one slot.
		if err := a.dev.Unload(a.currentEffectSlot); err != nil {
			a.currentEffectSlot = noEffect
			return 0, err
		}
		a.currentEffectSlot = noEffect
	}

	var (
		assigned  int16
		predicted uint32
		err       error
	)
	if effectID != nil {
		assigned, predicted, err = a.dev.UploadPeriodic(noEffect, *effectID, a.currentMagnitude, clampMs(timeoutMs))
	} else {
		assigned, err = a.dev.UploadConstant(noEffect, a.currentMagnitude, clampMs(timeoutMs))
		predicted = timeoutMs
	}
	if err != nil {
		return 0, err
	}
	a.currentEffectSlot = assigned

	if err := a.dev.Play(assigned, 1); err != nil {
		_ = a.dev.Unload(assigned)
		a.currentEffectSlot = noEffect
		return 0, err
	}
	return predicted, nil
}

// SetGain maps a client amplitude (0..255) linearly into [LightMagnitude,
// StrongMagnitude], stores both current_amplitude and current_magnitude,
// and writes the driver's FF_GAIN event (spec.md §4.1).
func (a *Adapter) SetGain(amplitude uint8) error {
	magnitude := int16(constants.LightMagnitude + int(amplitude)*(constants.StrongMagnitude-constants.LightMagnitude)/constants.MaxAmplitude)

	a.mu.Lock()
	a.currentAmplitude = amplitude
	a.currentMagnitude = magnitude
	a.mu.Unlock()

	return a.dev.SetGain(uint16(magnitude))
}

// Off stops any active effect, equivalent to UploadAndStart(nil, 0).
func (a *Adapter) Off() error {
	_, err := a.UploadAndStart(nil, 0)
	return err
}

// Close releases the underlying device.
func (a *Adapter) Close() error {
	return a.dev.Close()
}

func clampMs(ms uint32) uint16 {
	if ms > 0xFFFF {
		return 0xFFFF
	}
	return uint16(ms)
}
