package uapi

import "encoding/binary"

// MarshalFrameHeader manually marshals FrameHeader (8-byte C-compatible variant).
func MarshalFrameHeader(h *FrameHeader) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Result))
	buf[4] = h.Type
	buf[5] = h.RequestLen
	buf[6] = h.ResponseLen
	buf[7] = h.Pad
	return buf
}

// UnmarshalFrameHeader manually unmarshals FrameHeader.
func UnmarshalFrameHeader(data []byte) (FrameHeader, error) {
	var h FrameHeader
	if len(data) < HeaderSize {
		return h, ErrInsufficientData
	}
	h.Result = int32(binary.LittleEndian.Uint32(data[0:4]))
	h.Type = data[4]
	h.RequestLen = data[5]
	h.ResponseLen = data[6]
	h.Pad = data[7]
	return h, nil
}

// MarshalWaveformPayload manually marshals WaveformPayload (124-byte variant).
func MarshalWaveformPayload(p *WaveformPayload) []byte {
	buf := make([]byte, WaveformPayloadSize)
	buf[0] = byte(p.Repeat)
	buf[1] = p.Length
	binary.LittleEndian.PutUint16(buf[2:4], uint16(p.Count))
	copy(buf[4:28], p.Amplitudes[:])
	off := 28
	for i := 0; i < len(p.Timings); i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], p.Timings[i])
		off += 4
	}
	return buf
}

// UnmarshalWaveformPayload manually unmarshals WaveformPayload.
func UnmarshalWaveformPayload(data []byte) (WaveformPayload, error) {
	var p WaveformPayload
	if len(data) < WaveformPayloadSize {
		return p, ErrInsufficientData
	}
	p.Repeat = int8(data[0])
	p.Length = data[1]
	p.Count = int16(binary.LittleEndian.Uint16(data[2:4]))
	copy(p.Amplitudes[:], data[4:28])
	off := 28
	for i := 0; i < len(p.Timings); i++ {
		p.Timings[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	return p, nil
}

// MarshalEffectPayload manually marshals EffectPayload (12-byte variant).
func MarshalEffectPayload(p *EffectPayload) []byte {
	buf := make([]byte, EffectPayloadSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.EffectID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.PlayLengthMs))
	copy(buf[8:12], p.Extra[:])
	return buf
}

// UnmarshalEffectPayload manually unmarshals EffectPayload.
func UnmarshalEffectPayload(data []byte) (EffectPayload, error) {
	var p EffectPayload
	if len(data) < EffectPayloadSize {
		return p, ErrInsufficientData
	}
	p.EffectID = int32(binary.LittleEndian.Uint32(data[0:4]))
	p.PlayLengthMs = int32(binary.LittleEndian.Uint32(data[4:8]))
	copy(p.Extra[:], data[8:12])
	return p, nil
}

// Strength returns Extra's first byte as a predefined-effect strength enum.
func (p *EffectPayload) Strength() uint8 { return p.Extra[0] }

// SetStrength packs a predefined-effect strength enum into Extra.
func (p *EffectPayload) SetStrength(s uint8) {
	p.Extra = [4]byte{s, 0, 0, 0}
}

// Amplitude returns Extra reinterpreted as a little-endian float32, for
// Primitive commands.
func (p *EffectPayload) Amplitude() float32 {
	bits := binary.LittleEndian.Uint32(p.Extra[:])
	return float32frombits(bits)
}

// SetAmplitude packs a float32 amplitude into Extra, for Primitive commands.
func (p *EffectPayload) SetAmplitude(v float32) {
	binary.LittleEndian.PutUint32(p.Extra[:], float32bits(v))
}

// marshalFFEffectCommon writes the FFEffect fields shared by every union
// variant (type, id, direction, trigger, replay) into buf's first 16 bytes,
// which is where the kernel's own struct ff_effect places them before its
// pointer-aligned union.
func marshalFFEffectCommon(buf []byte, e *FFEffect) {
	binary.LittleEndian.PutUint16(buf[0:2], e.Type)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(e.ID))
	binary.LittleEndian.PutUint16(buf[4:6], e.Direction)
	binary.LittleEndian.PutUint16(buf[6:8], e.Trigger.Button)
	binary.LittleEndian.PutUint16(buf[8:10], e.Trigger.Interval)
	binary.LittleEndian.PutUint16(buf[10:12], e.Replay.Length)
	binary.LittleEndian.PutUint16(buf[12:14], e.Replay.Delay)
	// bytes 14:16 are compiler padding ahead of the union's 8-byte pointer
	// alignment requirement; left zeroed.
}

func marshalEnvelope(buf []byte, env FFEnvelope) {
	binary.LittleEndian.PutUint16(buf[0:2], env.AttackLength)
	binary.LittleEndian.PutUint16(buf[2:4], env.AttackLevel)
	binary.LittleEndian.PutUint16(buf[4:6], env.FadeLength)
	binary.LittleEndian.PutUint16(buf[6:8], env.FadeLevel)
}

// MarshalFFEffectConstant manually marshals an FFEffect carrying a constant
// force into the FFEffectSize-byte buffer EVIOCSFF expects.
func MarshalFFEffectConstant(e *FFEffect) []byte {
	buf := make([]byte, FFEffectSize)
	marshalFFEffectCommon(buf, e)
	binary.LittleEndian.PutUint16(buf[16:18], uint16(e.Constant.Level))
	marshalEnvelope(buf[18:26], e.Constant.Envelope)
	return buf
}

// MarshalFFEffectPeriodic manually marshals an FFEffect carrying a periodic
// (custom waveform) force. custom_data cannot be embedded inline — the
// kernel struct holds a pointer to a caller-owned 16-bit word array — so
// this returns both the ioctl buffer and the backing array the caller must
// keep alive (via runtime.KeepAlive) until EVIOCSFF returns, and may read
// from afterward to recover the driver's duration prediction.
func MarshalFFEffectPeriodic(e *FFEffect) (buf []byte, customData *[3]int16) {
	buf = make([]byte, FFEffectSize)
	marshalFFEffectCommon(buf, e)

	p := e.Periodic
	binary.LittleEndian.PutUint16(buf[16:18], p.Waveform)
	binary.LittleEndian.PutUint16(buf[18:20], p.Period)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(p.Magnitude))
	binary.LittleEndian.PutUint16(buf[22:24], uint16(p.Offset))
	binary.LittleEndian.PutUint16(buf[24:26], p.Phase)
	marshalEnvelope(buf[26:34], p.Envelope)
	// bytes 34:36 pad custom_len to its 4-byte alignment.
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(p.CustomData)))

	data := p.CustomData
	customData = &data
	putPointer(buf[40:48], customData)
	return buf, customData
}

// UnmarshalFFEffectID reads the effect id the kernel assigned (or echoed
// back) after a successful EVIOCSFF call.
func UnmarshalFFEffectID(buf []byte) int16 {
	return int16(binary.LittleEndian.Uint16(buf[2:4]))
}
