package pixel

// Plane describes the geometry of one plane within a surface buffer.
type Plane struct {
	Width           int
	Height          int
	BytesPerElement int
	BytesPerRow     int
	Offset          int // byte offset of the plane within the buffer
}

// PlaneCount returns the number of planes a format occupies. Unknown formats
// fall back to a single plane; format validity is checked by the allocator
// before layout is ever computed, so the fallback is defensive, not a silent
// acceptance of bad input.
func PlaneCount(f Format) int {
	switch f {
	case FormatNV12, FormatNV21:
		return 2
	case FormatYV12:
		return 3
	default:
		return 1
	}
}

// BytesPerElement returns the element width of the given plane.
func BytesPerElement(f Format, plane int) int {
	if plane > 0 {
		switch f {
		case FormatNV12, FormatNV21:
			// Interleaved chroma pair.
			return 2
		case FormatYV12:
			return 1
		}
	}
	switch f {
	case FormatBGRA8888, FormatRGBA8888, FormatRGBX8888:
		return 4
	case FormatRGB565:
		return 2
	case FormatL8, FormatNV12, FormatNV21, FormatYV12:
		// Single channel, or the luma plane of a planar format.
		return 1
	default:
		return 4
	}
}

// CalculatePlane computes the geometry of plane planeIndex for a surface of
// the given format and full-image dimensions. strideAlign is the row
// alignment in bytes (0 or 1 means unaligned).
//
// Plane 0 always has the full image dimensions. For chroma-subsampled
// formats, planes above 0 have half the width and height (rounded up), and
// each plane's offset is the running total of the preceding planes'
// BytesPerRow*Height.
func CalculatePlane(f Format, planeIndex, width, height, strideAlign int) Plane {
	if strideAlign < 1 {
		strideAlign = 1
	}

	p := planeDims(f, planeIndex, width, height)
	p.BytesPerRow = alignStride(p.Width*p.BytesPerElement, strideAlign)
	for i := 0; i < planeIndex; i++ {
		prev := planeDims(f, i, width, height)
		p.Offset += alignStride(prev.Width*prev.BytesPerElement, strideAlign) * prev.Height
	}
	return p
}

// CalculateTotalSize returns the byte size a buffer of the given format and
// dimensions needs. It is the maximum of offset+BytesPerRow*Height over all
// planes, not their sum: layouts are free to overlap or pad as long as every
// plane fits.
func CalculateTotalSize(f Format, width, height, strideAlign int) int {
	total := 0
	for i := 0; i < PlaneCount(f); i++ {
		p := CalculatePlane(f, i, width, height, strideAlign)
		if end := p.Offset + p.BytesPerRow*p.Height; end > total {
			total = end
		}
	}
	return total
}

func planeDims(f Format, planeIndex, width, height int) Plane {
	p := Plane{
		Width:           width,
		Height:          height,
		BytesPerElement: BytesPerElement(f, planeIndex),
	}
	if planeIndex > 0 {
		switch f {
		case FormatNV12, FormatNV21, FormatYV12:
			p.Width = (width + 1) / 2
			p.Height = (height + 1) / 2
		}
	}
	return p
}

func alignStride(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
