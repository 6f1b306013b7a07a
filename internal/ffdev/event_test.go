package ffdev

import (
	"encoding/binary"
	"testing"

	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

func TestMarshalInputEvent(t *testing.T) {
	buf := marshalInputEvent(uapi.EVFF, 7, 1)
	if len(buf) != inputEventSize {
		t.Fatalf("len = %d, want %d", len(buf), inputEventSize)
	}
	if got := binary.LittleEndian.Uint16(buf[16:18]); got != uapi.EVFF {
		t.Errorf("type = %d, want %d", got, uapi.EVFF)
	}
	if got := binary.LittleEndian.Uint16(buf[18:20]); got != 7 {
		t.Errorf("code = %d, want 7", got)
	}
	if got := int32(binary.LittleEndian.Uint32(buf[20:24])); got != 1 {
		t.Errorf("value = %d, want 1", got)
	}
}

func TestMarshalInputEventGain(t *testing.T) {
	buf := marshalInputEvent(uapi.EVFF, uapi.FFGain, 0x5FFF)
	if got := binary.LittleEndian.Uint16(buf[18:20]); got != uapi.FFGain {
		t.Errorf("code = %d, want FF_GAIN", got)
	}
	if got := int32(binary.LittleEndian.Uint32(buf[20:24])); got != 0x5FFF {
		t.Errorf("value = %d, want 0x5FFF", got)
	}
}
