package format

// Registry area layout.
//
// The area begins with a fixed 64-byte header immediately followed by a flat
// array of Capacity fixed-size entries:
//
//	Offset  Size  Description
//	0x00    4     Signature "KSRG"
//	0x04    4     Capacity (entry slots; validated on attach)
//	0x08    4     Entry count (live entries)
//	0x0C    4     Tombstone count
//	0x10    8     Creator team (debug)
//	0x18    8     Creation time, Unix nanoseconds (debug)
//	0x20    32    Reserved, zero
//
// Entry layout (little-endian):
//
//	Offset  Size  Description
//	0x00    8     Surface ID. 0 = empty, all-ones = tombstone.
//	0x08    8     Global (cross-process) use count, signed
//	0x10    8     Owner team
//	0x18    8     Source area ID
//	0x20    4     Width
//	0x24    4     Height
//	0x28    4     Pixel format
//	0x2C    4     Bytes per row (plane 0)
//	0x30    4     Bytes per element (plane 0)
//	0x34    4     Plane count
//	0x38    8     Total allocation size
//	0x40    8     Access token secret
//	0x48    4     Access token generation
//	0x4C    4     Usage flags
//	0x50    24    Debug name, Latin-1, NUL padded
//	0x68    8     Reserved, zero

const (
	// HeaderSize is the byte length of the registry header.
	HeaderSize = 64

	// EntrySize is the byte length of one registry entry slot.
	EntrySize = 112

	HeaderCapacityOffset       = 0x04
	HeaderEntryCountOffset     = 0x08
	HeaderTombstoneCountOffset = 0x0C
	HeaderCreatorTeamOffset    = 0x10
	HeaderCreatedAtOffset      = 0x18

	EntryIDOffset             = 0x00
	EntryGlobalUseOffset      = 0x08
	EntryOwnerTeamOffset      = 0x10
	EntrySourceAreaOffset     = 0x18
	EntryWidthOffset          = 0x20
	EntryHeightOffset         = 0x24
	EntryFormatOffset         = 0x28
	EntryBytesPerRowOffset    = 0x2C
	EntryBytesPerElemOffset   = 0x30
	EntryPlaneCountOffset     = 0x34
	EntryAllocSizeOffset      = 0x38
	EntryTokenSecretOffset    = 0x40
	EntryTokenGenOffset       = 0x48
	EntryUsageOffset          = 0x4C
	EntryNameOffset           = 0x50
)

// RegistryAreaSize returns the total byte size of a registry area with the
// given slot capacity.
func RegistryAreaSize(capacity int) int {
	return HeaderSize + capacity*EntrySize
}

// EntryOffset returns the byte offset of slot i within the registry area.
func EntryOffset(i int) int {
	return HeaderSize + i*EntrySize
}

// IsRegistrySignature reports whether b starts with the registry magic.
func IsRegistrySignature(b []byte) bool {
	if len(b) < RegistrySignatureOffset+RegistrySignatureSize {
		return false
	}
	return string(b[RegistrySignatureOffset:RegistrySignatureOffset+RegistrySignatureSize]) == RegistrySignature
}
