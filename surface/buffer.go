package surface

import (
	"sync"

	"github.com/kosmproject/surfkit/internal/format"
	"github.com/kosmproject/surfkit/surface/area"
	"github.com/kosmproject/surfkit/surface/pixel"
	"github.com/kosmproject/surfkit/surface/registry"
)

// PurgeState is the purgeability tri-state of a buffer.
type PurgeState int

const (
	// PurgeNonVolatile pins the contents; the system may never discard them.
	PurgeNonVolatile PurgeState = iota

	// PurgeVolatile allows the system to discard the contents under memory
	// pressure.
	PurgeVolatile

	// PurgeEmpty requests an immediate discard. After the request the state
	// behaves as volatile with contents gone.
	PurgeEmpty
)

// Buffer is the record behind one allocated surface: geometry, backing
// area, lock state, use counts, purgeability, and attachments. Exactly one
// Surface owns a Buffer in the allocating process; the shared registry
// references it by ID only and never through this struct.
//
// A Buffer is never copied: the mutex, the area handle, and the registry's
// view of the ID all pin its identity.
type Buffer struct {
	noCopy noCopy

	// mu guards every mutable field below against concurrent access from
	// threads of this process. Cross-process state lives in the registry,
	// under the registry's own lock.
	mu sync.Mutex

	id         registry.SurfaceID
	desc       Descriptor
	allocSize  int
	planeCount int
	planes     [format.MaxPlanes]pixel.Plane

	area     *area.Area
	ownsArea bool

	lockCount int
	lockOwner int64
	readOnly  bool

	// seed increments on every writable unlock; pollers compare seeds to
	// detect content changes without reading pixels.
	seed uint32

	localUse int

	purgeState     PurgeState
	contentsPurged bool

	attachments map[string]any
}

// ID returns the surface ID, valid machine-wide once registered.
func (b *Buffer) ID() registry.SurfaceID { return b.id }

// Descriptor returns the buffer's geometry.
func (b *Buffer) Descriptor() Descriptor { return b.desc }

// AllocSize returns the total byte size of the backing area allocation.
func (b *Buffer) AllocSize() int { return b.allocSize }

// PlaneCount returns the number of planes.
func (b *Buffer) PlaneCount() int { return b.planeCount }

// Plane returns the geometry of plane i.
func (b *Buffer) Plane(i int) pixel.Plane {
	if i < 0 || i >= b.planeCount {
		return pixel.Plane{}
	}
	return b.planes[i]
}

// AreaID returns the backing area's ID.
func (b *Buffer) AreaID() area.ID { return b.area.ID() }

// OwnsArea reports whether this process created the backing area (true for
// allocations, false for clones). Only the owner ever deletes the area.
func (b *Buffer) OwnsArea() bool { return b.ownsArea }

// noCopy triggers `go vet -copylocks` on any copy of the containing struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
