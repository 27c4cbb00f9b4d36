package format

import "encoding/binary"

// Little-endian field accessors for the registry area.
//
// encoding/binary.LittleEndian inlines well; hand-rolled unsafe variants buy
// nothing here and the registry table is not a hot loop anyway.

// PutU16 writes a uint16 at off.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// PutU32 writes a uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutI64 writes an int64 at off.
func PutI64(b []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(b[off:off+8], uint64(v))
}

// PutU64 writes a uint64 at off.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU16 reads a uint16 at off.
func ReadU16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// ReadU32 reads a uint32 at off.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadI64 reads an int64 at off.
func ReadI64(b []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint64(b[off : off+8]))
}

// ReadU64 reads a uint64 at off.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
