package uapi

import (
	"math"
	"unsafe"
)

func float32bits(v float32) uint32   { return math.Float32bits(v) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// putPointer writes the address of a pinned Go array into buf as a
// little-endian uint64, the same "stash a userspace address in a uint64
// kernel-struct field" technique the teacher uses for UblksrvCtrlCmd.Addr.
// The caller is responsible for keeping ptr alive (runtime.KeepAlive) until
// the kernel has finished reading/writing through it.
func putPointer(buf []byte, ptr *[3]int16) {
	addr := uint64(uintptr(unsafe.Pointer(ptr)))
	for i := 0; i < 8; i++ {
		buf[i] = byte(addr >> (8 * i))
	}
}
