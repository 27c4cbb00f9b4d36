package registry

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/kosmproject/surfkit/internal/format"
	"github.com/kosmproject/surfkit/surface/area"
	"github.com/kosmproject/surfkit/surface/pixel"
)

// SurfaceID identifies a surface machine-wide once registered. Zero is never
// a valid ID.
type SurfaceID uint64

// Info is the denormalized geometry and ownership record a lookup returns.
// It is a copy of the entry's fields, so callers never hold references into
// the shared area.
type Info struct {
	Width           int
	Height          int
	Format          pixel.Format
	BytesPerRow     int
	BytesPerElement int
	PlaneCount      int
	AllocSize       int64
	Usage           pixel.Usage
	OwnerTeam       int64
	SourceArea      area.ID
	Name            string
}

// entry is a zero-copy view of one slot in the shared entry array. All
// accessors read and write the mapped bytes directly.
type entry struct {
	b []byte // len == format.EntrySize
}

func (e entry) id() uint64        { return format.ReadU64(e.b, format.EntryIDOffset) }
func (e entry) setID(id uint64)   { format.PutU64(e.b, format.EntryIDOffset, id) }
func (e entry) empty() bool       { return e.id() == 0 }
func (e entry) tombstone() bool   { return e.id() == format.TombstoneID }
func (e entry) live() bool        { id := e.id(); return id != 0 && id != format.TombstoneID }
func (e entry) globalUse() int64  { return format.ReadI64(e.b, format.EntryGlobalUseOffset) }
func (e entry) ownerTeam() int64  { return format.ReadI64(e.b, format.EntryOwnerTeamOffset) }
func (e entry) sourceArea() int64 { return format.ReadI64(e.b, format.EntrySourceAreaOffset) }
func (e entry) tokenSecret() uint64 {
	return format.ReadU64(e.b, format.EntryTokenSecretOffset)
}
func (e entry) tokenGeneration() uint32 {
	return format.ReadU32(e.b, format.EntryTokenGenOffset)
}

func (e entry) setGlobalUse(v int64) { format.PutI64(e.b, format.EntryGlobalUseOffset, v) }
func (e entry) setTokenSecret(v uint64) {
	format.PutU64(e.b, format.EntryTokenSecretOffset, v)
}
func (e entry) setTokenGeneration(v uint32) {
	format.PutU32(e.b, format.EntryTokenGenOffset, v)
}

// markTombstone converts a live slot into a tombstone. All payload fields
// are cleared so stale geometry never leaks to a later reader.
func (e entry) markTombstone() {
	clear(e.b)
	e.setID(format.TombstoneID)
}

func (e entry) info() Info {
	return Info{
		Width:           int(format.ReadU32(e.b, format.EntryWidthOffset)),
		Height:          int(format.ReadU32(e.b, format.EntryHeightOffset)),
		Format:          pixel.Format(format.ReadU32(e.b, format.EntryFormatOffset)),
		BytesPerRow:     int(format.ReadU32(e.b, format.EntryBytesPerRowOffset)),
		BytesPerElement: int(format.ReadU32(e.b, format.EntryBytesPerElemOffset)),
		PlaneCount:      int(format.ReadU32(e.b, format.EntryPlaneCountOffset)),
		AllocSize:       format.ReadI64(e.b, format.EntryAllocSizeOffset),
		Usage:           pixel.Usage(format.ReadU32(e.b, format.EntryUsageOffset)),
		OwnerTeam:       e.ownerTeam(),
		SourceArea:      area.ID(e.sourceArea()),
		Name:            decodeName(e.b[format.EntryNameOffset : format.EntryNameOffset+format.EntryNameSize]),
	}
}

// store writes a complete entry. Token fields are preserved, so idempotent
// re-registration does not invalidate issued tokens.
func (e entry) store(id SurfaceID, info Info) {
	e.setID(uint64(id))
	format.PutI64(e.b, format.EntryOwnerTeamOffset, info.OwnerTeam)
	format.PutI64(e.b, format.EntrySourceAreaOffset, int64(info.SourceArea))
	format.PutU32(e.b, format.EntryWidthOffset, uint32(info.Width))
	format.PutU32(e.b, format.EntryHeightOffset, uint32(info.Height))
	format.PutU32(e.b, format.EntryFormatOffset, uint32(info.Format))
	format.PutU32(e.b, format.EntryBytesPerRowOffset, uint32(info.BytesPerRow))
	format.PutU32(e.b, format.EntryBytesPerElemOffset, uint32(info.BytesPerElement))
	format.PutU32(e.b, format.EntryPlaneCountOffset, uint32(info.PlaneCount))
	format.PutI64(e.b, format.EntryAllocSizeOffset, info.AllocSize)
	format.PutU32(e.b, format.EntryUsageOffset, uint32(info.Usage))
	encodeName(e.b[format.EntryNameOffset:format.EntryNameOffset+format.EntryNameSize], info.Name)
}

// nameEncoder maps the debug name to Latin-1, replacing anything the charset
// cannot carry. Names are diagnostics, not identity, so lossy is fine.
var nameEncoder = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

func encodeName(dst []byte, name string) {
	clear(dst)
	if name == "" {
		return
	}
	enc, err := nameEncoder.Bytes([]byte(name))
	if err != nil {
		return
	}
	copy(dst, enc)
}

func decodeName(src []byte) string {
	end := bytes.IndexByte(src, 0)
	if end < 0 {
		end = len(src)
	}
	if end == 0 {
		return ""
	}
	dec, err := charmap.Windows1252.NewDecoder().Bytes(src[:end])
	if err != nil {
		return ""
	}
	return string(dec)
}
