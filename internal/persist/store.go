// Package persist implements interfaces.IntensityStore as a small
// CBOR-encoded file under a fixed path, holding the single persisted
// intensity key and calibration blob (spec.md §6: persist.vibrator_mode).
// The daemon has no other persistent state, so a single small file stands
// in for what would otherwise be a key-value store.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
)

// fileState is the on-disk CBOR document. Intensity is a pointer so an
// absent key (never-saved) is distinguishable from an explicit Low (0).
type fileState struct {
	Intensity   *uint8 `cbor:"intensity,omitempty"`
	Calibration []byte `cbor:"calibration,omitempty"`
}

// Store is a file-backed interfaces.IntensityStore. Not safe for use from
// more than one process against the same path; within one process all
// access is serialized by mu.
type Store struct {
	mu     sync.Mutex
	path   string
	logger interfaces.Logger
	state  fileState
}

var _ interfaces.IntensityStore = (*Store)(nil)

// Open loads path if it exists, or starts from an empty state if it
// doesn't. A malformed file is treated as a fatal error rather than
// silently discarded, since it would otherwise mask real data loss.
func Open(path string, logger interfaces.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("persist: %s does not exist, starting empty", path)
			return s, nil
		}
		return nil, fmt.Errorf("persist: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := cbor.Unmarshal(raw, &s.state); err != nil {
		return nil, fmt.Errorf("persist: decode %s: %w", path, err)
	}
	logger.Debugf("persist: loaded state from %s", path)
	return s, nil
}

// LoadIntensity implements interfaces.IntensityStore.
func (s *Store) LoadIntensity() (uint8, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Intensity == nil {
		return 0, false, nil
	}
	return *s.state.Intensity, true, nil
}

// SaveIntensity implements interfaces.IntensityStore.
func (s *Store) SaveIntensity(intensity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Intensity = &intensity
	return s.saveLocked()
}

// LoadCalibration implements interfaces.IntensityStore.
func (s *Store) LoadCalibration() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.state.Calibration...), nil
}

// SaveCalibration implements interfaces.IntensityStore.
func (s *Store) SaveCalibration(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Calibration = append([]byte(nil), data...)
	return s.saveLocked()
}

// saveLocked marshals the current state and writes it via a temp-file
// rename so a crash mid-write never leaves a truncated file behind.
func (s *Store) saveLocked() error {
	raw, err := cbor.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".persist-*.tmp")
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: rename into place: %w", err)
	}
	s.logger.Debugf("persist: saved state to %s", s.path)
	return nil
}
