package uapi

import "unsafe"

// FrameHeader is the fixed 8-byte preamble of every wire frame exchanged
// between a client and vibratord (spec.md §6):
//
//	struct frame_header {
//	  int32_t result;         // 0 on success, negative errno-style code otherwise
//	  uint8_t type;           // command kind (Kind* constants)
//	  uint8_t request_len;    // bytes the client sends, header included
//	  uint8_t response_len;   // bytes the server will write back, header included
//	  uint8_t pad;            // reserved, must be zero
//	};
type FrameHeader struct {
	Result      int32
	Type        uint8
	RequestLen  uint8
	ResponseLen uint8
	Pad         uint8
}

// Compile-time size check - the header must stay exactly 8 bytes.
var _ [8]byte = [unsafe.Sizeof(FrameHeader{})]byte{}

// WaveformPayload is the union member shared by Waveform and Interval
// commands (spec.md §3, §6). Interval commands reuse this same layout
// rather than a dedicated struct: Count carries the repeat count, and
// Timings[0]/Timings[1] carry duration_ms/interval_ms; Repeat, Length and
// Amplitudes are unused and must be sent zeroed.
type WaveformPayload struct {
	Repeat     int8
	Length     uint8
	Count      int16
	Amplitudes [24]uint8
	Timings    [24]uint32
}

// Compile-time size check.
var _ [124]byte = [unsafe.Sizeof(WaveformPayload{})]byte{}

// EffectPayload is the union member shared by PredefinedEffect and
// Primitive commands, used for both the request and its echoed-back
// response (spec.md §3, §6). Extra holds a uint8 strength enum for
// PredefinedEffect (byte 0, rest zero) or a float32 amplitude for
// Primitive.
type EffectPayload struct {
	EffectID     int32
	PlayLengthMs int32
	Extra        [4]byte
}

// Compile-time size check.
var _ [12]byte = [unsafe.Sizeof(EffectPayload{})]byte{}

// FFTrigger mirrors linux/input.h's struct ff_trigger.
type FFTrigger struct {
	Button   uint16
	Interval uint16
}

// FFReplay mirrors linux/input.h's struct ff_replay.
type FFReplay struct {
	Length uint16
	Delay  uint16
}

// FFEnvelope mirrors linux/input.h's struct ff_envelope.
type FFEnvelope struct {
	AttackLength uint16
	AttackLevel  uint16
	FadeLength   uint16
	FadeLevel    uint16
}

// FFConstantEffect mirrors linux/input.h's struct ff_constant_effect.
type FFConstantEffect struct {
	Level    int16
	Envelope FFEnvelope
}

// FFPeriodicEffect mirrors linux/input.h's struct ff_periodic_effect, minus
// the trailing custom_data pointer which marshal.go handles separately
// (Go cannot embed a raw C pointer portably; see MarshalFFEffectPeriodic).
type FFPeriodicEffect struct {
	Waveform  uint16
	Period    uint16
	Magnitude int16
	Offset    int16
	Phase     uint16
	Envelope  FFEnvelope
	// CustomData holds the three words passed by reference to the kernel:
	// [effect_id, 0, 0] on upload; the driver overwrites the last two with
	// the effect's predicted total-on duration in milliseconds, split
	// across two 16-bit words, which the adapter returns as the play length
	// of a PredefinedEffect or Primitive (spec.md §4.1).
	CustomData [3]int16
}

// FFEffect is the request this project issues to EVIOCSFF. Exactly one of
// Constant or Periodic is set, selected by Type.
type FFEffect struct {
	Type      uint16 // FFConstant or FFPeriodic
	ID        int16  // -1 to request a new id; the kernel assigns one back
	Direction uint16
	Trigger   FFTrigger
	Replay    FFReplay
	Constant  *FFConstantEffect
	Periodic  *FFPeriodicEffect
}
