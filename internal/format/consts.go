package format

// Shared constants for the surface registry area and area file naming.
//
// The registry area layout is a fixed binary contract: every process on the
// machine maps the same bytes, and there is no version negotiation. Any
// change to the offsets below is a breaking change for every attached
// process.

const (
	// RegistrySignature is the 4-byte magic at offset 0 of the registry area.
	RegistrySignature = "KSRG"

	// RegistrySignatureOffset is the offset of the signature.
	RegistrySignatureOffset = 0x00

	// RegistrySignatureSize is the byte length of the signature.
	RegistrySignatureSize = 4

	// DefaultCapacity is the default number of entry slots in the registry
	// hash table.
	DefaultCapacity = 4096

	// TombstoneID marks a slot whose entry was unregistered. Distinct from 0
	// (never used) so linear-probe chains through the slot stay intact.
	TombstoneID = ^uint64(0)

	// MaxPlanes bounds the per-buffer plane array. Planar YUV needs at most
	// three planes (YV12); interleaved-chroma formats need two.
	MaxPlanes = 3

	// MaxDimension is the largest accepted width or height for a surface.
	MaxDimension = 16384

	// EntryNameSize is the fixed width of the Latin-1 debug name stored in
	// each registry entry. Longer names are truncated on registration.
	EntryNameSize = 24
)
