package layout

import "encoding/binary"

// Little-endian field accessors. encoding/binary is inlined by the compiler
// into plain loads and stores, so these cost the same as unsafe casts.

func putU16(b []byte, off int64, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

func putU32(b []byte, off int64, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

func putU64(b []byte, off int64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

func putI64(b []byte, off int64, v int64) {
	binary.LittleEndian.PutUint64(b[off:off+8], uint64(v))
}

func readU16(b []byte, off int64) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

func readU32(b []byte, off int64) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func readU64(b []byte, off int64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

func readI64(b []byte, off int64) int64 {
	return int64(binary.LittleEndian.Uint64(b[off : off+8]))
}
