package haptic

import (
	"sync"

	"github.com/ehrlich-b/go-haptic/internal/interfaces"
)

// MockEffectDevice is a mock implementation of interfaces.EffectDevice for
// use by external callers writing tests against this package, mirroring the
// teacher's MockBackend (call tracking plus a scriptable failure mode).
type MockEffectDevice struct {
	mu sync.Mutex

	nextID int16

	UploadedConstant int
	UploadedPeriodic int
	Unloaded         int
	Played           []int16
	Gains            []uint16
	CapBitmap        []byte

	FailNextUpload bool
	CloseCalled    bool
}

var _ interfaces.EffectDevice = (*MockEffectDevice)(nil)

// NewMockEffectDevice creates a mock device whose first assigned effect id
// is 1.
func NewMockEffectDevice() *MockEffectDevice {
	return &MockEffectDevice{nextID: 1}
}

func (m *MockEffectDevice) UploadConstant(id int16, level int16, playLengthMs uint16) (int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextUpload {
		m.FailNextUpload = false
		return -1, NewDeviceError("UploadConstant", 5)
	}
	m.UploadedConstant++
	assigned := m.nextID
	m.nextID++
	return assigned, nil
}

func (m *MockEffectDevice) UploadPeriodic(id int16, effectID int32, magnitude int16, playLengthMs uint16) (int16, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextUpload {
		m.FailNextUpload = false
		return -1, 0, NewDeviceError("UploadPeriodic", 5)
	}
	m.UploadedPeriodic++
	assigned := m.nextID
	m.nextID++
	return assigned, uint32(playLengthMs), nil
}

func (m *MockEffectDevice) Play(id int16, value int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Played = append(m.Played, id)
	return nil
}

func (m *MockEffectDevice) SetGain(gain uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gains = append(m.Gains, gain)
	return nil
}

func (m *MockEffectDevice) Unload(id int16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unloaded++
	return nil
}

func (m *MockEffectDevice) Capabilities() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CapBitmap, nil
}

func (m *MockEffectDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

// MockStore is a mock implementation of interfaces.IntensityStore, holding
// state purely in memory.
type MockStore struct {
	mu          sync.Mutex
	intensity   uint8
	hasIntensity bool
	calibration []byte
}

var _ interfaces.IntensityStore = (*MockStore)(nil)

// NewMockStore creates an empty store (LoadIntensity reports found=false
// until SaveIntensity is called).
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (s *MockStore) LoadIntensity() (uint8, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity, s.hasIntensity, nil
}

func (s *MockStore) SaveIntensity(intensity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intensity = intensity
	s.hasIntensity = true
	return nil
}

func (s *MockStore) LoadCalibration() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibration, nil
}

func (s *MockStore) SaveCalibration(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibration = append([]byte(nil), data...)
	return nil
}
