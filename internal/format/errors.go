package format

import "errors"

var (
	// ErrTruncated indicates a buffer too small for the structure being read.
	ErrTruncated = errors.New("format: truncated")

	// ErrBadSignature indicates the registry area magic did not match.
	ErrBadSignature = errors.New("format: bad registry signature")

	// ErrBadCapacity indicates the header capacity disagrees with the mapped
	// area size, or is not a sane value.
	ErrBadCapacity = errors.New("format: bad registry capacity")
)
