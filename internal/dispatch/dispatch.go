// Package dispatch implements the command dispatcher (spec.md §4.4): it
// decodes a request frame's payload for its kind, validates it, drives the
// FF device adapter and playback engine, and encodes the reply. Grounded on
// the teacher's internal/ctrl.Controller for the "one method per command,
// validate first, never let a device error escape as a panic" shape, though
// the teacher dispatches by direct Go method call rather than a decoded
// wire kind.
package dispatch

import (
	"encoding/binary"
	"errors"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/ffdev"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
	"github.com/ehrlich-b/go-haptic/internal/playback"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// Dispatcher holds the single adapter, playback engine and intensity store
// shared by every connection (spec.md §5: the motor device is a
// system-wide singleton, serialized entirely by the dispatcher).
type Dispatcher struct {
	adapter  *ffdev.Adapter
	engine   *playback.Engine
	store    interfaces.IntensityStore
	logger   interfaces.Logger
	observer interfaces.Observer

	mu sync.Mutex // one command at a time, across all connections
}

// New builds a Dispatcher. store and observer may be nil.
func New(adapter *ffdev.Adapter, engine *playback.Engine, store interfaces.IntensityStore, logger interfaces.Logger, observer interfaces.Observer) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{adapter: adapter, engine: engine, store: store, logger: logger, observer: observer}
}

// Dispatch decodes payload according to header.Type, executes the command,
// and returns the exact response bytes (spec.md §4.5's fixed response
// length table). payload excludes the frame header.
func (d *Dispatcher) Dispatch(header uapi.FrameHeader, payload []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	resp, err := d.route(header.Type, payload)
	if d.observer != nil {
		d.observer.ObserveCommand(header.Type, uint64(time.Since(start).Nanoseconds()), err == nil)
	}
	return resp
}

func (d *Dispatcher) route(kind uint8, payload []byte) ([]byte, error) {
	switch kind {
	case uapi.KindWaveform:
		return d.handleWaveform(payload)
	case uapi.KindInterval:
		return d.handleInterval(payload)
	case uapi.KindPredefinedEffect:
		return d.handlePredefinedEffect(payload)
	case uapi.KindPrimitive:
		return d.handlePrimitive(payload)
	case uapi.KindStart:
		return d.handleStart(payload)
	case uapi.KindStop:
		return d.handleStop()
	case uapi.KindSetAmplitude:
		return d.handleSetAmplitude(payload)
	case uapi.KindSetIntensity:
		return d.handleSetIntensity(payload)
	case uapi.KindGetIntensity:
		return d.handleGetIntensity()
	case uapi.KindGetCapabilities:
		return d.handleGetCapabilities()
	case uapi.KindCalibrate:
		return d.handleCalibrate()
	case uapi.KindSetCalibValue:
		return d.handleSetCalibValue(payload)
	default:
		// Composition (kind 13) and any unrecognized kind: not wired, see
		// DESIGN.md's Open Question resolution.
		err := notSupportedErr{}
		return simpleResult(resultFor(err)), err
	}
}

func (d *Dispatcher) handleWaveform(payload []byte) ([]byte, error) {
	p, err := uapi.UnmarshalWaveformPayload(payload)
	if err != nil {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if p.Length == 0 || int(p.Length) > constants.MaxWaveformSteps {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if p.Repeat < -1 || int(p.Repeat) >= int(p.Length) {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if d.adapter.Intensity() == constants.IntensityOff {
		err := notSupportedErr{}
		return simpleResult(resultFor(err)), err
	}

	repeat := playback.ShouldRepeat(p.Repeat, p.Timings[:p.Length], p.Length)
	wave := playback.Wave{
		Timings:    append([]uint32(nil), p.Timings[:p.Length]...),
		Amplitudes: append([]uint8(nil), p.Amplitudes[:p.Length]...),
		Length:     p.Length,
		Repeat:     repeat,
	}
	d.engine.StartWaveform(wave)
	return simpleResult(0), nil
}

func (d *Dispatcher) handleInterval(payload []byte) ([]byte, error) {
	p, err := uapi.UnmarshalWaveformPayload(payload)
	if err != nil {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	durationMs := p.Timings[0]
	intervalMs := p.Timings[1]
	count := int32(p.Count)
	if durationMs == 0 || count < 0 {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}

	d.engine.StartInterval(playback.IntervalSpec{DurationMs: durationMs, IntervalMs: intervalMs, Count: count})
	return simpleResult(0), nil
}

func (d *Dispatcher) handlePredefinedEffect(payload []byte) ([]byte, error) {
	p, err := uapi.UnmarshalEffectPayload(payload)
	if err != nil {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	strength := p.Strength()
	if strength > constants.StrengthDefault {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if d.adapter.Intensity() == constants.IntensityOff {
		err := notSupportedErr{}
		return effectResponse(resultFor(err), p.EffectID, 0, p.Extra), err
	}

	d.engine.Preempt()
	d.adapter.SetMagnitudeFromStrength(strength)
	effectID := p.EffectID
	predicted, err := d.adapter.UploadAndStart(&effectID, uint32(p.PlayLengthMs))
	if err != nil {
		code := resultFor(err)
		return effectResponse(code, p.EffectID, 0, p.Extra), err
	}
	return effectResponse(0, p.EffectID, int32(predicted), p.Extra), nil
}

func (d *Dispatcher) handlePrimitive(payload []byte) ([]byte, error) {
	p, err := uapi.UnmarshalEffectPayload(payload)
	if err != nil {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	amp := p.Amplitude()
	if amp < 0 || amp > 1 {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if d.adapter.Intensity() == constants.IntensityOff {
		err := notSupportedErr{}
		return effectResponse(resultFor(err), p.EffectID, 0, p.Extra), err
	}

	d.engine.Preempt()
	magnitude := int16(float64(constants.LightMagnitude) + float64(amp)*float64(constants.StrongMagnitude-constants.LightMagnitude))
	d.adapter.SetMagnitude(magnitude)
	effectID := p.EffectID
	predicted, err := d.adapter.UploadAndStart(&effectID, uint32(p.PlayLengthMs))
	if err != nil {
		code := resultFor(err)
		return effectResponse(code, p.EffectID, 0, p.Extra), err
	}
	return effectResponse(0, p.EffectID, int32(predicted), p.Extra), nil
}

func (d *Dispatcher) handleStart(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	timeoutMs := binary.LittleEndian.Uint32(payload[0:4])
	if timeoutMs == 0 {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	intensity := d.adapter.Intensity()
	if intensity == constants.IntensityOff {
		err := notSupportedErr{}
		return simpleResult(resultFor(err)), err
	}

	d.engine.Preempt()
	if _, err := d.adapter.UploadAndStart(nil, timeoutMs); err != nil {
		return simpleResult(resultFor(err)), err
	}
	// Order matters: enable first, then set gain (spec.md §4.4).
	if err := d.adapter.SetGain(playback.Scale(d.adapter.CurrentAmplitude(), intensity)); err != nil {
		return simpleResult(resultFor(err)), err
	}
	return simpleResult(0), nil
}

func (d *Dispatcher) handleStop() ([]byte, error) {
	d.engine.Stop()
	return simpleResult(0), nil
}

func (d *Dispatcher) handleSetAmplitude(payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if err := d.adapter.SetGain(payload[0]); err != nil {
		return simpleResult(resultFor(err)), err
	}
	return simpleResult(0), nil
}

func (d *Dispatcher) handleSetIntensity(payload []byte) ([]byte, error) {
	if len(payload) < 1 || payload[0] > constants.IntensityOff {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	intensity := payload[0]
	d.adapter.SetIntensity(intensity)
	if d.store != nil {
		if err := d.store.SaveIntensity(intensity); err != nil {
			return simpleResult(resultFor(err)), err
		}
	}
	return simpleResult(0), nil
}

func (d *Dispatcher) handleGetIntensity() ([]byte, error) {
	intensity := d.adapter.Intensity()
	return valueResponse(0, uapi.KindGetIntensity, uint32(intensity)), nil
}

func (d *Dispatcher) handleGetCapabilities() ([]byte, error) {
	return valueResponse(0, uapi.KindGetCapabilities, uint32(d.adapter.Capabilities())), nil
}

// handleCalibrate returns the persisted calibration blob as a passthrough
// read — there is no distinct FF calibration ioctl to forward to, so the
// stored value round-trips directly (spec.md §9 Open Question resolution).
func (d *Dispatcher) handleCalibrate() ([]byte, error) {
	blob := make([]byte, constants.VibratorCalibValueMax)
	if d.store != nil {
		stored, err := d.store.LoadCalibration()
		if err != nil {
			return simpleResult(resultFor(err)), err
		}
		copy(blob, stored)
	}
	h := uapi.FrameHeader{
		Result:      0,
		Type:        uapi.KindCalibrate,
		RequestLen:  uint8(uapi.RequestLen(uapi.KindCalibrate)),
		ResponseLen: uint8(uapi.ResponseLen(uapi.KindCalibrate)),
	}
	return append(uapi.MarshalFrameHeader(&h), blob...), nil
}

func (d *Dispatcher) handleSetCalibValue(payload []byte) ([]byte, error) {
	if len(payload) < constants.VibratorCalibValueMax {
		return simpleResult(-int32(unix.EINVAL)), invalidArgErr{}
	}
	if d.store != nil {
		if err := d.store.SaveCalibration(payload[:constants.VibratorCalibValueMax]); err != nil {
			return simpleResult(resultFor(err)), err
		}
	}
	return simpleResult(0), nil
}

func simpleResult(result int32) []byte {
	buf := make([]byte, uapi.ResultSize)
	binary.LittleEndian.PutUint32(buf, uint32(result))
	return buf
}

func valueResponse(result int32, kind uint8, value uint32) []byte {
	h := uapi.FrameHeader{
		Result:      result,
		Type:        kind,
		RequestLen:  uint8(uapi.RequestLen(kind)),
		ResponseLen: uint8(uapi.ResponseLen(kind)),
	}
	buf := uapi.MarshalFrameHeader(&h)
	valueBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(valueBuf, value)
	return append(buf, valueBuf...)
}

func effectResponse(result int32, effectID int32, playLengthMs int32, extra [4]byte) []byte {
	h := uapi.FrameHeader{
		Result:      result,
		Type:        uapi.KindPredefinedEffect,
		RequestLen:  uint8(uapi.RequestLen(uapi.KindPredefinedEffect)),
		ResponseLen: uint8(uapi.ResponseLen(uapi.KindPredefinedEffect)),
	}
	p := uapi.EffectPayload{EffectID: effectID, PlayLengthMs: playLengthMs, Extra: extra}
	return append(uapi.MarshalFrameHeader(&h), uapi.MarshalEffectPayload(&p)...)
}

// invalidArgErr and notSupportedErr are local sentinels so route's callers
// can tell validation/unsupported failures apart from device errors without
// depending on the root package's Error type (the root package imports
// dispatch, so importing it back would be a cycle).
type invalidArgErr struct{}

func (invalidArgErr) Error() string { return "invalid argument" }

type notSupportedErr struct{}

func (notSupportedErr) Error() string { return "not supported" }

// resultFor maps an error from a handler into the wire protocol's
// negative-errno result code (spec.md §7).
func resultFor(err error) int32 {
	if err == nil {
		return 0
	}
	if _, ok := err.(invalidArgErr); ok {
		return -int32(unix.EINVAL)
	}
	if _, ok := err.(notSupportedErr); ok {
		return -int32(unix.ENOTSUP)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int32(errno)
	}
	return -int32(unix.EIO)
}
