package ffdev

import "encoding/binary"

// inputEventSize is sizeof(struct input_event) on a 64-bit Linux system:
// two 8-byte timeval fields (tv_sec, tv_usec) followed by type(2), code(2),
// value(4). The kernel ignores the timestamp on events written by
// userspace, so this adapter always writes zero there.
const inputEventSize = 24

// marshalInputEvent manually marshals a struct input_event for writing to
// the device fd to trigger effect play/stop/gain (spec.md §6).
func marshalInputEvent(evType uint16, code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(buf[16:18], evType)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}
