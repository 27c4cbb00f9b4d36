package surface

import (
	"github.com/kosmproject/surfkit/surface/pixel"
)

// Descriptor describes the geometry a caller wants for a surface. Zero
// BytesPerRow or BytesPerElement are filled in from the plane-0 layout
// during allocation.
type Descriptor struct {
	Width           int
	Height          int
	Format          pixel.Format
	BytesPerRow     int
	BytesPerElement int
	Usage           pixel.Usage
}

// fillDefaults populates BytesPerRow/BytesPerElement from plane 0 when the
// caller left them zero.
func (d *Descriptor) fillDefaults(p0 pixel.Plane) {
	if d.BytesPerElement == 0 {
		d.BytesPerElement = p0.BytesPerElement
	}
	if d.BytesPerRow == 0 {
		d.BytesPerRow = p0.BytesPerRow
	}
}
