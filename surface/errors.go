package surface

import "errors"

var (
	// ErrBusy indicates the buffer is locked by a different owner. Surface
	// locks never block; callers retry or back off.
	ErrBusy = errors.New("surface: buffer busy")

	// ErrNotLocked indicates an unlock without a matching lock, or pixel
	// access while unlocked.
	ErrNotLocked = errors.New("surface: buffer not locked")

	// ErrNotAllowed indicates a lock-discipline violation: upgrading a
	// read-only lock, unlocking somebody else's lock.
	ErrNotAllowed = errors.New("surface: not allowed")

	// ErrPurged indicates the buffer contents were discarded while volatile.
	// The transition back to non-volatile succeeds, but the caller must
	// repopulate the pixels.
	ErrPurged = errors.New("surface: contents were purged")

	// ErrNotFound indicates no local surface with the given ID.
	ErrNotFound = errors.New("surface: not found")

	// ErrNotInUse indicates a use-count decrement without a matching
	// increment.
	ErrNotInUse = errors.New("surface: not in use")

	// ErrBadDimensions indicates a zero or over-limit width or height.
	ErrBadDimensions = errors.New("surface: bad dimensions")

	// ErrUnsupportedFormat indicates a pixel format the backend cannot
	// allocate.
	ErrUnsupportedFormat = errors.New("surface: unsupported pixel format")

	// ErrUnsupportedUsage indicates usage bits outside the backend's
	// capability mask. The whole request is rejected, never silently
	// narrowed.
	ErrUnsupportedUsage = errors.New("surface: unsupported usage")

	// ErrNoOwner indicates a lock request without an owner identity.
	ErrNoOwner = errors.New("surface: lock owner required")

	// ErrAreaTooSmall indicates a cloned area smaller than the registered
	// buffer it is supposed to back.
	ErrAreaTooSmall = errors.New("surface: area smaller than registered size")
)
