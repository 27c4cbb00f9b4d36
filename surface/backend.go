package surface

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/kosmproject/surfkit/internal/format"
	"github.com/kosmproject/surfkit/internal/shmfile"
	"github.com/kosmproject/surfkit/surface/area"
	"github.com/kosmproject/surfkit/surface/pixel"
	"github.com/kosmproject/surfkit/surface/registry"
)

// Backend allocates and frees the memory behind surface buffers and reports
// the platform's capabilities.
type Backend interface {
	// Allocate creates the backing storage for desc and returns the buffer
	// record. desc's zero fields are filled in from the computed layout.
	Allocate(desc *Descriptor) (*Buffer, error)

	// Import reconstructs a buffer in a receiving process from registered
	// geometry plus a cloned area. The buffer never owns the area.
	Import(info registry.Info, areaID area.ID) (*Buffer, error)

	// Free releases the buffer. The backing area is deleted only when the
	// buffer owns it; an imported buffer merely detaches.
	Free(b *Buffer) error

	// Map and Unmap bracket CPU access for backends that defer mapping.
	Map(b *Buffer) error
	Unmap(b *Buffer) error

	// StrideAlign returns the row alignment in bytes the backend lays
	// planes out with.
	StrideAlign() int

	// MaxDimension returns the largest accepted width or height.
	MaxDimension() int

	// SupportsFormat reports whether the backend can allocate f.
	SupportsFormat(f pixel.Format) bool

	// SupportsUsage reports whether every bit of u is within the backend's
	// capability mask. One unsupported bit rejects the whole request.
	SupportsUsage(u pixel.Usage) bool
}

// defaultStrideAlign keeps rows cache-line aligned.
const defaultStrideAlign = 64

// AreaBackend allocates surface buffers as shared-memory areas. Areas are
// globally mapped at creation, so Map and Unmap are no-ops here; a backend
// for device memory would defer the mapping instead.
type AreaBackend struct {
	dir         string
	strideAlign int
	pageSize    int
	nextTag     atomic.Int64
}

// NewAreaBackend returns a backend placing areas in dir (the shared-memory
// base directory when dir is empty).
func NewAreaBackend(dir string) *AreaBackend {
	if dir == "" {
		dir = shmfile.BaseDir()
	}
	return &AreaBackend{
		dir:         dir,
		strideAlign: defaultStrideAlign,
		pageSize:    os.Getpagesize(),
	}
}

// Dir returns the directory areas are created in.
func (ab *AreaBackend) Dir() string { return ab.dir }

// Allocate validates desc, computes the planar layout, and creates a
// zero-filled backing area. Nothing is left behind on failure.
func (ab *AreaBackend) Allocate(desc *Descriptor) (*Buffer, error) {
	if desc.Width <= 0 || desc.Height <= 0 ||
		desc.Width > ab.MaxDimension() || desc.Height > ab.MaxDimension() {
		return nil, ErrBadDimensions
	}
	if !ab.SupportsFormat(desc.Format) {
		return nil, ErrUnsupportedFormat
	}
	if !ab.SupportsUsage(desc.Usage) {
		return nil, ErrUnsupportedUsage
	}

	b := &Buffer{planeCount: pixel.PlaneCount(desc.Format)}
	for i := 0; i < b.planeCount; i++ {
		b.planes[i] = pixel.CalculatePlane(desc.Format, i, desc.Width, desc.Height, ab.strideAlign)
	}
	desc.fillDefaults(b.planes[0])
	b.desc = *desc

	size := pixel.CalculateTotalSize(desc.Format, desc.Width, desc.Height, ab.strideAlign)
	b.allocSize = format.PageAlign(size, ab.pageSize)

	// The tag makes every area name unique and self-describing in the shm
	// directory listing.
	tag := ab.nextTag.Add(1)
	name := fmt.Sprintf("surface-%d-%dx%d", tag, desc.Width, desc.Height)
	a, err := area.Create(ab.dir, name, b.allocSize)
	if err != nil {
		// Nothing allocated yet beyond the record itself; surface the OS
		// error as-is.
		return nil, err
	}
	// Fresh area pages arrive zero-filled from the kernel; no explicit wipe
	// needed.
	b.area = a
	b.ownsArea = true
	return b, nil
}

// Import attaches the cloned area backing an already-registered surface and
// rebuilds the buffer record from the registry's geometry.
func (ab *AreaBackend) Import(info registry.Info, areaID area.ID) (*Buffer, error) {
	ainfo, err := area.GetInfo(ab.dir, areaID)
	if err != nil {
		return nil, err
	}
	if int64(ainfo.Size) < info.AllocSize {
		return nil, ErrAreaTooSmall
	}
	a, err := area.Clone(ab.dir, areaID)
	if err != nil {
		return nil, err
	}

	b := &Buffer{
		desc: Descriptor{
			Width:           info.Width,
			Height:          info.Height,
			Format:          info.Format,
			BytesPerRow:     info.BytesPerRow,
			BytesPerElement: info.BytesPerElement,
			Usage:           info.Usage,
		},
		allocSize:  int(info.AllocSize),
		planeCount: info.PlaneCount,
		area:       a,
		ownsArea:   false,
	}
	for i := 0; i < b.planeCount && i < format.MaxPlanes; i++ {
		b.planes[i] = pixel.CalculatePlane(info.Format, i, info.Width, info.Height, ab.strideAlign)
	}
	return b, nil
}

// Free releases the buffer's backing area. A clone must never delete the
// creator's area, so only owned areas are unlinked.
func (ab *AreaBackend) Free(b *Buffer) error {
	if b.area == nil {
		return nil
	}
	var err error
	if b.ownsArea {
		err = b.area.Delete()
	} else {
		err = b.area.Close()
	}
	b.area = nil
	return err
}

// Map is a no-op: areas are mapped at creation.
func (ab *AreaBackend) Map(b *Buffer) error { return nil }

// Unmap is a no-op: the mapping lives until Free.
func (ab *AreaBackend) Unmap(b *Buffer) error { return nil }

// StrideAlign returns the backend's row alignment.
func (ab *AreaBackend) StrideAlign() int { return ab.strideAlign }

// MaxDimension returns the dimension limit.
func (ab *AreaBackend) MaxDimension() int { return format.MaxDimension }

// SupportsFormat accepts every format in the known-format table.
func (ab *AreaBackend) SupportsFormat(f pixel.Format) bool { return f.Known() }

// areaBackendUsage is the capability mask: plain shared memory supports CPU
// access, display hand-off, and video producers, but cannot provide
// CPU-inaccessible protected memory.
const areaBackendUsage = pixel.UsageCPURead | pixel.UsageCPUWrite |
	pixel.UsageDisplay | pixel.UsageVideo

// SupportsUsage checks u against the capability mask as a subset.
func (ab *AreaBackend) SupportsUsage(u pixel.Usage) bool {
	return u&^areaBackendUsage == 0
}

var _ Backend = (*AreaBackend)(nil)
