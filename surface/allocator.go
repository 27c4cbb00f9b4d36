package surface

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kosmproject/surfkit/surface/area"
	"github.com/kosmproject/surfkit/surface/registry"
)

// MaxSurfaces is the size of the allocator's local ID table.
const MaxSurfaces = 1024

// Runtime debug flag for allocation logging - controlled by the
// SURF_LOG_ALLOC env var.
var logAlloc = os.Getenv("SURF_LOG_ALLOC") != ""

// Allocator is the per-process facade tying a Backend, the shared registry,
// and a local ID→surface table together.
//
// The local table is indexed by (id-1) mod MaxSurfaces without probing; a
// collision silently overwrites the slot. Acceptable while live surface
// counts stay well below the table size, which they do in practice, but a
// latent gap worth replacing with probing if that assumption ever breaks.
// Lookup guards against it by re-checking the stored ID.
type Allocator struct {
	mu      sync.Mutex
	backend Backend
	reg     *registry.Registry
	nextSeq uint32
	table   [MaxSurfaces]*Surface
}

// NewAllocator builds an allocator over the given backend and registry
// handle. One allocator per process is the expected shape, constructed at
// process start and owned by whoever wires the process together.
func NewAllocator(backend Backend, reg *registry.Registry) *Allocator {
	return &Allocator{backend: backend, reg: reg}
}

// Registry returns the registry handle this allocator registers into.
func (al *Allocator) Registry() *registry.Registry { return al.reg }

// Allocate creates a surface for desc, registers it machine-wide, and
// returns the handle. On any failure the allocation unwinds completely; no
// partially registered surface is ever left behind.
func (al *Allocator) Allocate(desc Descriptor) (*Surface, error) {
	// Reject obviously bad requests before touching the backend.
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, ErrBadDimensions
	}
	if !al.backend.SupportsFormat(desc.Format) {
		return nil, ErrUnsupportedFormat
	}
	if !al.backend.SupportsUsage(desc.Usage) {
		return nil, ErrUnsupportedUsage
	}

	buf, err := al.backend.Allocate(&desc)
	if err != nil {
		return nil, err
	}

	id := al.mintID()
	buf.id = id
	s := &Surface{buf: buf, alloc: al}

	info := registry.Info{
		Width:           desc.Width,
		Height:          desc.Height,
		Format:          desc.Format,
		BytesPerRow:     desc.BytesPerRow,
		BytesPerElement: desc.BytesPerElement,
		PlaneCount:      buf.planeCount,
		AllocSize:       int64(buf.allocSize),
		Usage:           desc.Usage,
		SourceArea:      buf.AreaID(),
		Name:            buf.area.Name(),
	}
	if err := al.reg.Register(id, info); err != nil {
		// Roll back: free the backend buffer, hand the caller the error.
		al.backend.Free(buf)
		return nil, fmt.Errorf("surface: register %d: %w", id, err)
	}

	al.mu.Lock()
	al.table[slotFor(id)] = s
	al.mu.Unlock()
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] surface %d: %dx%d %s, %d plane(s), %d bytes in area %d\n",
			id, desc.Width, desc.Height, desc.Format, buf.planeCount, buf.allocSize, buf.AreaID())
	}
	return s, nil
}

// Free releases a surface this process allocated or imported. Freeing a
// surface whose global use count is still nonzero is a programming error
// serious enough to halt: other processes would be left holding dangling
// area references, and data corruption is worse than a crash.
func (al *Allocator) Free(s *Surface) error {
	id := s.ID()

	al.mu.Lock()
	if al.table[slotFor(id)] == s {
		al.table[slotFor(id)] = nil
	}
	al.mu.Unlock()

	if s.buf.ownsArea {
		inUse, err := al.reg.IsInUse(id)
		if err == nil && inUse {
			panic(fmt.Sprintf("surface: freeing surface %d while globally in use", id))
		}
		if err := al.reg.Unregister(id); err != nil {
			if errors.Is(err, registry.ErrInUse) {
				panic(fmt.Sprintf("surface: freeing surface %d while globally in use", id))
			}
			if !errors.Is(err, registry.ErrNotFound) {
				return err
			}
		}
	}
	// An imported surface detaches locally only; the owner's registration
	// stays untouched.
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] free surface %d (ownsArea=%v)\n", id, s.buf.ownsArea)
	}
	return al.backend.Free(s.buf)
}

// Lookup returns the local surface registered under id. Purely local: the
// shared registry is not consulted. A stale slot whose surface no longer
// carries id reports ErrNotFound, protecting against the table's
// no-probing collision policy.
func (al *Allocator) Lookup(id registry.SurfaceID) (*Surface, error) {
	al.mu.Lock()
	defer al.mu.Unlock()

	s := al.table[slotFor(id)]
	if s == nil || s.ID() != id {
		return nil, ErrNotFound
	}
	return s, nil
}

// CreateFromClone is the receiving side of cross-process sharing: given a
// surface ID and the ID of an area cloned from the owner, it rebuilds a
// local surface from the registry's geometry. The plain-lookup path works
// within the owning team; cross-team importers use
// CreateFromCloneWithToken.
func (al *Allocator) CreateFromClone(id registry.SurfaceID, areaID area.ID) (*Surface, error) {
	info, err := al.reg.LookupInfo(id)
	if err != nil {
		return nil, err
	}
	return al.installClone(id, info, areaID)
}

// CreateFromCloneWithToken imports a surface across a team boundary using
// an access token issued by the owner.
func (al *Allocator) CreateFromCloneWithToken(id registry.SurfaceID, areaID area.ID, tok registry.Token) (*Surface, error) {
	info, err := al.reg.LookupInfoWithToken(id, tok)
	if err != nil {
		return nil, err
	}
	return al.installClone(id, info, areaID)
}

func (al *Allocator) installClone(id registry.SurfaceID, info registry.Info, areaID area.ID) (*Surface, error) {
	buf, err := al.backend.Import(info, areaID)
	if err != nil {
		return nil, err
	}
	buf.id = id
	s := &Surface{buf: buf, alloc: al}

	// Installed under the original surface ID, not a fresh local one, so
	// later local lookups by the shared ID land here.
	al.mu.Lock()
	al.table[slotFor(id)] = s
	al.mu.Unlock()
	return s, nil
}

// mintID hands out the next surface ID. The team in the high bits keeps
// concurrent minters in different processes from colliding; within the
// process the allocator lock serializes the sequence.
func (al *Allocator) mintID() registry.SurfaceID {
	al.mu.Lock()
	defer al.mu.Unlock()
	al.nextSeq++
	return registry.SurfaceID(uint64(al.reg.Team())<<32 | uint64(al.nextSeq))
}

func slotFor(id registry.SurfaceID) int {
	return int(uint64(id-1) % uint64(MaxSurfaces))
}
