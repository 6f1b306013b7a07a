package dispatch

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/ffdev"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/playback"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// fakeDevice is a minimal interfaces.EffectDevice, grounded on
// internal/playback's own test fake.
type fakeDevice struct {
	mu      sync.Mutex
	nextID  int16
	uploads int
	gains   []uint16
	caps    []byte
}

var _ interfaces.EffectDevice = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice { return &fakeDevice{nextID: 1} }

func (f *fakeDevice) UploadConstant(id int16, level int16, playLengthMs uint16) (int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	assigned := f.nextID
	f.nextID++
	return assigned, nil
}

func (f *fakeDevice) UploadPeriodic(id int16, effectID int32, magnitude int16, playLengthMs uint16) (int16, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	assigned := f.nextID
	f.nextID++
	return assigned, uint32(playLengthMs), nil
}

func (f *fakeDevice) Play(id int16, value int32) error { return nil }

func (f *fakeDevice) SetGain(gain uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gains = append(f.gains, gain)
	return nil
}

func (f *fakeDevice) Unload(id int16) error { return nil }

func (f *fakeDevice) Capabilities() ([]byte, error) { return f.caps, nil }
func (f *fakeDevice) Close() error                  { return nil }

// fakeStore is a minimal interfaces.IntensityStore.
type fakeStore struct {
	mu          sync.Mutex
	intensity   uint8
	found       bool
	calibration []byte
}

var _ interfaces.IntensityStore = (*fakeStore)(nil)

func (s *fakeStore) LoadIntensity() (uint8, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity, s.found, nil
}

func (s *fakeStore) SaveIntensity(intensity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intensity = intensity
	s.found = true
	return nil
}

func (s *fakeStore) LoadCalibration() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibration, nil
}

func (s *fakeStore) SaveCalibration(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibration = append([]byte(nil), data...)
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeDevice, *fakeStore) {
	dev := newFakeDevice()
	adapter := ffdev.NewAdapter(dev, nil, nil)
	engine := playback.NewEngine(adapter, nil, nil)
	store := &fakeStore{}
	return New(adapter, engine, store, nil, nil), dev, store
}

func resultOf(resp []byte) int32 {
	return int32(binary.LittleEndian.Uint32(resp[0:4]))
}

func TestDispatchStartAndStop(t *testing.T) {
	d, dev, _ := newTestDispatcher()

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 200)
	resp, err := d.route(uapi.KindStart, payload)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resultOf(resp) != 0 {
		t.Errorf("Start result = %d, want 0", resultOf(resp))
	}
	if dev.uploads != 1 {
		t.Errorf("uploads = %d, want 1", dev.uploads)
	}

	resp, err = d.route(uapi.KindStop, nil)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if resultOf(resp) != 0 {
		t.Errorf("Stop result = %d, want 0", resultOf(resp))
	}
}

func TestDispatchStartZeroTimeoutIsInvalid(t *testing.T) {
	d, _, _ := newTestDispatcher()

	payload := make([]byte, 4)
	_, err := d.route(uapi.KindStart, payload)
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchSetAmplitude(t *testing.T) {
	d, dev, _ := newTestDispatcher()

	resp, err := d.route(uapi.KindSetAmplitude, []byte{128})
	if err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}
	if resultOf(resp) != 0 {
		t.Errorf("result = %d, want 0", resultOf(resp))
	}
	if len(dev.gains) != 1 {
		t.Fatalf("gains = %v, want one entry", dev.gains)
	}
}

func TestDispatchSetIntensityPersists(t *testing.T) {
	d, _, store := newTestDispatcher()

	resp, err := d.route(uapi.KindSetIntensity, []byte{constants.IntensityHigh})
	if err != nil {
		t.Fatalf("SetIntensity: %v", err)
	}
	if resultOf(resp) != 0 {
		t.Errorf("result = %d, want 0", resultOf(resp))
	}
	got, found, _ := store.LoadIntensity()
	if !found || got != constants.IntensityHigh {
		t.Errorf("store intensity = (%d, %v), want (%d, true)", got, found, constants.IntensityHigh)
	}
}

func TestDispatchSetIntensityOutOfRange(t *testing.T) {
	d, _, _ := newTestDispatcher()

	_, err := d.route(uapi.KindSetIntensity, []byte{constants.IntensityOff + 1})
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchGetIntensity(t *testing.T) {
	d, _, _ := newTestDispatcher()

	resp, err := d.route(uapi.KindGetIntensity, nil)
	if err != nil {
		t.Fatalf("GetIntensity: %v", err)
	}
	if len(resp) != uapi.HeaderSize+4 {
		t.Fatalf("len(resp) = %d, want %d", len(resp), uapi.HeaderSize+4)
	}
	got := binary.LittleEndian.Uint32(resp[uapi.HeaderSize:])
	if got != uint32(constants.IntensityMedium) {
		t.Errorf("GetIntensity = %d, want %d (default Medium)", got, constants.IntensityMedium)
	}
}

func TestDispatchGetCapabilities(t *testing.T) {
	d, dev, _ := newTestDispatcher()
	// FF_CONSTANT bit set (code 0x52 -> byte 10, bit 2).
	dev.caps = make([]byte, 16)
	dev.caps[uapi.FFConstant/8] |= 1 << (uapi.FFConstant % 8)

	resp, err := d.route(uapi.KindGetCapabilities, nil)
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}
	// Capabilities() alone only reflects Probe's cached result, which is
	// zero until Probe is called; this exercises the response shape.
	if len(resp) != uapi.HeaderSize+4 {
		t.Fatalf("len(resp) = %d, want %d", len(resp), uapi.HeaderSize+4)
	}
}

func TestDispatchCalibrateRoundTrips(t *testing.T) {
	d, _, store := newTestDispatcher()
	blob := make([]byte, constants.VibratorCalibValueMax)
	for i := range blob {
		blob[i] = byte(i + 1)
	}
	store.calibration = blob

	resp, err := d.route(uapi.KindCalibrate, nil)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if len(resp) != uapi.HeaderSize+constants.VibratorCalibValueMax {
		t.Fatalf("len(resp) = %d, want %d", len(resp), uapi.HeaderSize+constants.VibratorCalibValueMax)
	}
	got := resp[uapi.HeaderSize:]
	for i := range blob {
		if got[i] != blob[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], blob[i])
		}
	}
}

func TestDispatchSetCalibValueTooShort(t *testing.T) {
	d, _, _ := newTestDispatcher()

	_, err := d.route(uapi.KindSetCalibValue, make([]byte, 4))
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchPredefinedEffectEchoesPayload(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.EffectPayload{EffectID: 7, PlayLengthMs: 500}
	p.SetStrength(constants.StrengthStrong)
	resp, err := d.route(uapi.KindPredefinedEffect, uapi.MarshalEffectPayload(&p))
	if err != nil {
		t.Fatalf("PredefinedEffect: %v", err)
	}
	if len(resp) != uapi.HeaderSize+uapi.EffectPayloadSize {
		t.Fatalf("len(resp) = %d, want %d", len(resp), uapi.HeaderSize+uapi.EffectPayloadSize)
	}
	echoed, err := uapi.UnmarshalEffectPayload(resp[uapi.HeaderSize:])
	if err != nil {
		t.Fatalf("UnmarshalEffectPayload: %v", err)
	}
	if echoed.EffectID != 7 {
		t.Errorf("echoed EffectID = %d, want 7", echoed.EffectID)
	}
}

func TestDispatchPredefinedEffectBadStrength(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.EffectPayload{EffectID: 1, PlayLengthMs: 100}
	p.SetStrength(constants.StrengthDefault + 1)
	_, err := d.route(uapi.KindPredefinedEffect, uapi.MarshalEffectPayload(&p))
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchPrimitiveAmplitudeBounds(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.EffectPayload{EffectID: 1, PlayLengthMs: 100}
	p.SetAmplitude(1.5)
	_, err := d.route(uapi.KindPrimitive, uapi.MarshalEffectPayload(&p))
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchWaveformRejectsOversizedLength(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.WaveformPayload{Repeat: -1, Length: constants.MaxWaveformSteps + 1}
	_, err := d.route(uapi.KindWaveform, uapi.MarshalWaveformPayload(&p))
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

func TestDispatchWaveformStarts(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.WaveformPayload{Repeat: -1, Length: 2}
	p.Amplitudes[0] = 255
	p.Timings[0] = 10
	resp, err := d.route(uapi.KindWaveform, uapi.MarshalWaveformPayload(&p))
	if err != nil {
		t.Fatalf("Waveform: %v", err)
	}
	if resultOf(resp) != 0 {
		t.Errorf("result = %d, want 0", resultOf(resp))
	}
	time.Sleep(5 * time.Millisecond)
	_, _ = d.route(uapi.KindStop, nil)
}

func TestDispatchIntervalRejectsZeroDuration(t *testing.T) {
	d, _, _ := newTestDispatcher()

	p := uapi.WaveformPayload{Count: 3}
	_, err := d.route(uapi.KindInterval, uapi.MarshalWaveformPayload(&p))
	if _, ok := err.(invalidArgErr); !ok {
		t.Errorf("err = %v, want invalidArgErr", err)
	}
}

// TestDispatchIntensityOffBlocksPlayback covers spec §8 Property 4 / S4:
// with intensity Off, Start/Waveform/PredefinedEffect/Primitive must all
// return -ENOTSUP and perform zero device I/O.
func TestDispatchIntensityOffBlocksPlayback(t *testing.T) {
	d, dev, _ := newTestDispatcher()

	resp, err := d.route(uapi.KindSetIntensity, []byte{constants.IntensityOff})
	if err != nil {
		t.Fatalf("SetIntensity(Off): %v", err)
	}
	if resultOf(resp) != 0 {
		t.Fatalf("SetIntensity(Off) result = %d, want 0", resultOf(resp))
	}

	startPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(startPayload, 200)
	_, err = d.route(uapi.KindStart, startPayload)
	if _, ok := err.(notSupportedErr); !ok {
		t.Errorf("Start err = %v, want notSupportedErr", err)
	}

	wavePayload := uapi.WaveformPayload{Repeat: -1, Length: 2}
	wavePayload.Amplitudes[0] = 255
	wavePayload.Timings[0] = 10
	_, err = d.route(uapi.KindWaveform, uapi.MarshalWaveformPayload(&wavePayload))
	if _, ok := err.(notSupportedErr); !ok {
		t.Errorf("Waveform err = %v, want notSupportedErr", err)
	}

	effectPayload := uapi.EffectPayload{EffectID: 1, PlayLengthMs: 100}
	effectPayload.SetStrength(constants.StrengthStrong)
	_, err = d.route(uapi.KindPredefinedEffect, uapi.MarshalEffectPayload(&effectPayload))
	if _, ok := err.(notSupportedErr); !ok {
		t.Errorf("PredefinedEffect err = %v, want notSupportedErr", err)
	}

	primitivePayload := uapi.EffectPayload{EffectID: 1, PlayLengthMs: 100}
	primitivePayload.SetAmplitude(1.0)
	_, err = d.route(uapi.KindPrimitive, uapi.MarshalEffectPayload(&primitivePayload))
	if _, ok := err.(notSupportedErr); !ok {
		t.Errorf("Primitive err = %v, want notSupportedErr", err)
	}

	time.Sleep(5 * time.Millisecond)
	if dev.uploads != 0 {
		t.Errorf("uploads = %d, want 0 (zero device I/O with intensity Off)", dev.uploads)
	}
}

func TestDispatchUnknownKindIsNotSupported(t *testing.T) {
	d, _, _ := newTestDispatcher()

	resp, err := d.route(uapi.KindComposition, nil)
	if _, ok := err.(notSupportedErr); !ok {
		t.Errorf("err = %v, want notSupportedErr", err)
	}
	if len(resp) != uapi.ResultSize {
		t.Errorf("len(resp) = %d, want %d", len(resp), uapi.ResultSize)
	}
}
