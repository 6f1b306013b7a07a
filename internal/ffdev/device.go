// Package ffdev wraps a single Linux force-feedback (FF) capable input
// device file, translating the handful of operations the dispatcher needs
// (upload/play constant, upload/play periodic-custom, set gain, stop,
// capability query) into the kernel's ioctl/write surface (spec.md §4.1,
// §6). Grounded on the teacher's internal/ctrl.Controller — one struct
// owning a device fd, logging each step — generalized from block-device
// control commands to FF effect uploads, and on the capability-bit and
// effect-upload technique of other_examples' evdev.go binding.
package ffdev

import (
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// Device is the sole owner of an open FF device fd. It is not safe for
// concurrent use; spec.md §5 assigns it exclusively to the event-loop
// goroutine, or to the one playback worker while playback is active.
type Device struct {
	fd     int
	path   string
	logger interfaces.Logger
}

var _ interfaces.EffectDevice = (*Device)(nil)

// Open opens path (normally internal/constants.DefaultDevicePath) for
// read-write access, retrying while the node does not exist yet.
func Open(path string, logger interfaces.Logger) (*Device, error) {
	if logger == nil {
		logger = logging.Default()
	}
	var (
		fd  int
		err error
	)
	for attempt := 1; ; attempt++ {
		fd, err = syscall.Open(path, syscall.O_RDWR, 0)
		if err != syscall.ENOENT || attempt >= constants.DeviceOpenRetries {
			break
		}
		time.Sleep(constants.DeviceOpenRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger.Debugf("ffdev: opened %s fd=%d", path, fd)
	return &Device{fd: fd, path: path, logger: logger}, nil
}

// Close releases the underlying file descriptor.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := syscall.Close(d.fd)
	d.fd = -1
	return err
}

// Capabilities queries EVIOCGBIT(EV_FF, ...) and returns the raw bitmap so
// the caller can test individual effect/feature codes with uapi.HasCapability.
func (d *Device) Capabilities() ([]byte, error) {
	buf := make([]byte, (uapi.FFMaxEffects/8)+1)
	if err := d.ioctl(uapi.EVIOCGBIT(uapi.EVFF, uint32(len(buf))), &buf[0]); err != nil {
		return nil, fmt.Errorf("EVIOCGBIT(EV_FF): %w", err)
	}
	d.logger.Debugf("ffdev: capability bitmap % x", buf)
	return buf, nil
}

// UploadConstant uploads (id < 0 requests a new slot; id >= 0 re-uploads in
// place) a constant-force effect at the given magnitude and replay length.
func (d *Device) UploadConstant(id int16, level int16, playLengthMs uint16) (int16, error) {
	effect := &uapi.FFEffect{
		Type:   uapi.FFConstant,
		ID:     id,
		Replay: uapi.FFReplay{Length: playLengthMs},
		Constant: &uapi.FFConstantEffect{
			Level: level,
		},
	}
	buf := uapi.MarshalFFEffectConstant(effect)

	if err := d.ioctl(uapi.EVIOCSFF, &buf[0]); err != nil {
		return -1, fmt.Errorf("EVIOCSFF(constant): %w", err)
	}
	assigned := uapi.UnmarshalFFEffectID(buf)
	d.logger.Debugf("ffdev: uploaded constant effect id=%d level=%d length_ms=%d", assigned, level, playLengthMs)
	return assigned, nil
}

// UploadPeriodic uploads a periodic-custom effect at the given magnitude.
// custom_data is seeded with [effectID, 0, 0]; on success the driver has
// overwritten positions 1 and 2 with its predicted total-on duration, split
// as high*1000+low milliseconds (spec.md §4.1).
func (d *Device) UploadPeriodic(id int16, effectID int32, magnitude int16, playLengthMs uint16) (int16, uint32, error) {
	effect := &uapi.FFEffect{
		Type:   uapi.FFPeriodic,
		ID:     id,
		Replay: uapi.FFReplay{Length: playLengthMs},
		Periodic: &uapi.FFPeriodicEffect{
			Waveform:   uapi.FFCustom,
			Magnitude:  magnitude,
			CustomData: [3]int16{int16(effectID), 0, 0},
		},
	}
	buf, custom := uapi.MarshalFFEffectPeriodic(effect)

	err := d.ioctl(uapi.EVIOCSFF, &buf[0])
	runtime.KeepAlive(custom)
	if err != nil {
		return -1, 0, fmt.Errorf("EVIOCSFF(periodic): %w", err)
	}

	assigned := uapi.UnmarshalFFEffectID(buf)
	high, low := custom[1], custom[2]
	predictedMs := uint32(high)*1000 + uint32(low)
	d.logger.Debugf("ffdev: uploaded periodic effect id=%d effect_id=%d magnitude=%d predicted_ms=%d", assigned, effectID, magnitude, predictedMs)
	return assigned, predictedMs, nil
}

// Play starts (value=1) or stops (value=0) the effect with the given id by
// writing a single input_event (spec.md §6).
func (d *Device) Play(id int16, value int32) error {
	if err := d.writeEvent(uapi.EVFF, uint16(id), value); err != nil {
		return fmt.Errorf("play effect %d: %w", id, err)
	}
	return nil
}

// SetGain writes the device-wide FF_GAIN event. gain is the raw driver
// magnitude (0..0x7FFF), not a percentage — the caller (Adapter.SetGain)
// has already scaled it.
func (d *Device) SetGain(gain uint16) error {
	if err := d.writeEvent(uapi.EVFF, uapi.FFGain, int32(gain)); err != nil {
		return fmt.Errorf("set gain: %w", err)
	}
	d.logger.Debugf("ffdev: set gain %d", gain)
	return nil
}

// Unload frees an effect id previously returned by an Upload* call.
func (d *Device) Unload(id int16) error {
	if id < 0 {
		return nil
	}
	if err := d.ioctlInt(uapi.EVIOCRMFF, int32(id)); err != nil {
		return fmt.Errorf("EVIOCRMFF(%d): %w", id, err)
	}
	d.logger.Debugf("ffdev: unloaded effect id=%d", id)
	return nil
}

func (d *Device) ioctl(req uint32, arg *byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(unsafe.Pointer(arg)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) ioctlInt(req uint32, arg int32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) writeEvent(evType uint16, code uint16, value int32) error {
	buf := marshalInputEvent(evType, code, value)
	_, err := unix.Write(d.fd, buf)
	return err
}
