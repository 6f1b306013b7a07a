package persist

import (
	"path/filepath"
	"testing"
)

func TestLoadIntensityNotFoundWhenFileAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, found, err := s.LoadIntensity()
	if err != nil {
		t.Fatalf("LoadIntensity: %v", err)
	}
	if found {
		t.Errorf("found = true, want false for a never-saved key")
	}
}

func TestSaveAndLoadIntensityRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveIntensity(2); err != nil {
		t.Fatalf("SaveIntensity: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, found, err := reopened.LoadIntensity()
	if err != nil {
		t.Fatalf("LoadIntensity: %v", err)
	}
	if !found || got != 2 {
		t.Errorf("LoadIntensity = (%d, %v), want (2, true)", got, found)
	}
}

func TestSaveAndLoadCalibrationRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	if err := s.SaveCalibration(want); err != nil {
		t.Fatalf("SaveCalibration: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.LoadCalibration()
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("LoadCalibration = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LoadCalibration[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
