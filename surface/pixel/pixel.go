// Package pixel defines surface pixel formats, usage flags, and the planar
// layout arithmetic shared by the allocation backend and the registry.
package pixel

// Format identifies the pixel layout of a surface.
type Format uint32

const (
	// FormatUnknown is the zero value; never valid for allocation.
	FormatUnknown Format = iota

	// 32-bit interleaved formats, 4 bytes per element.
	FormatBGRA8888
	FormatRGBA8888
	FormatRGBX8888

	// FormatRGB565 is 16-bit packed RGB, 2 bytes per element.
	FormatRGB565

	// FormatL8 is single-channel 8-bit luminance.
	FormatL8

	// FormatNV12 is planar YUV 4:2:0: a full-resolution luma plane followed
	// by one half-resolution plane of interleaved CbCr pairs.
	FormatNV12

	// FormatNV21 is NV12 with the chroma pair order swapped (CrCb).
	FormatNV21

	// FormatYV12 is planar YUV 4:2:0 with two separate half-resolution
	// chroma planes (Cr then Cb).
	FormatYV12

	formatCount
)

var formatNames = [...]string{
	FormatUnknown:  "unknown",
	FormatBGRA8888: "BGRA8888",
	FormatRGBA8888: "RGBA8888",
	FormatRGBX8888: "RGBX8888",
	FormatRGB565:   "RGB565",
	FormatL8:       "L8",
	FormatNV12:     "NV12",
	FormatNV21:     "NV21",
	FormatYV12:     "YV12",
}

// String returns the conventional name of the format.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "invalid"
}

// Known reports whether f is a format this library understands. FormatUnknown
// is not known.
func (f Format) Known() bool {
	return f > FormatUnknown && f < formatCount
}

// FormatCount returns the number of known formats, including FormatUnknown.
// Used by capability tables.
func FormatCount() int { return int(formatCount) }

// Usage is a bitmask describing how a surface will be accessed. A backend
// rejects a descriptor whose usage contains any bit outside its capability
// mask.
type Usage uint32

const (
	// UsageCPURead and UsageCPUWrite cover direct pixel access through the
	// mapped buffer.
	UsageCPURead Usage = 1 << iota
	UsageCPUWrite

	// UsageDisplay marks surfaces handed to a compositor for scanout.
	UsageDisplay

	// UsageVideo marks surfaces produced or consumed by video codecs.
	UsageVideo

	// UsageProtected requests memory inaccessible to the CPU. No in-tree
	// backend provides it.
	UsageProtected
)
