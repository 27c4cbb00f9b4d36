package format

// Alignment utilities for buffer geometry and area sizing.

// AlignUp returns n rounded up to the next multiple of align. align must be a
// power of two.
//
// Example:
//
//	AlignUp(1, 64)  = 64
//	AlignUp(64, 64) = 64
//	AlignUp(65, 64) = 128
func AlignUp(n, align int) int {
	mask := align - 1
	return (n + mask) & ^mask
}

// PageAlign returns n rounded up to the next multiple of pageSize.
// Used when sizing the backing area of a surface buffer.
func PageAlign(n, pageSize int) int {
	if pageSize <= 0 {
		return n
	}
	rem := n % pageSize
	if rem == 0 {
		return n
	}
	return n + pageSize - rem
}
