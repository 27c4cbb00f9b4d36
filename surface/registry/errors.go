package registry

import "errors"

var (
	// ErrNotFound indicates no live entry with the given surface ID.
	ErrNotFound = errors.New("registry: surface not found")

	// ErrInUse indicates the surface's global use count is still nonzero.
	ErrInUse = errors.New("registry: surface in use")

	// ErrNotInUse indicates a use-count decrement below zero.
	ErrNotInUse = errors.New("registry: surface not in use")

	// ErrNoSpace indicates the table has no free slot for a new entry.
	ErrNoSpace = errors.New("registry: table full")

	// ErrExists indicates the ID is already registered by another team.
	ErrExists = errors.New("registry: surface already registered")

	// ErrNotAllowed indicates a cross-team operation without a valid token.
	ErrNotAllowed = errors.New("registry: not allowed")

	// ErrBadToken indicates a missing, stale, or forged access token.
	ErrBadToken = errors.New("registry: bad access token")

	// ErrBadID indicates a surface ID that can never be registered (zero or
	// the tombstone sentinel).
	ErrBadID = errors.New("registry: bad surface id")
)
