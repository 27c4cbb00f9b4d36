package surface

import (
	"github.com/kosmproject/surfkit/surface/registry"
)

// Surface is the per-process handle to an allocated buffer. All methods are
// safe for concurrent use from multiple threads of this process.
type Surface struct {
	buf   *Buffer
	alloc *Allocator
}

// ID returns the machine-wide surface ID.
func (s *Surface) ID() registry.SurfaceID { return s.buf.id }

// Descriptor returns the surface geometry.
func (s *Surface) Descriptor() Descriptor { return s.buf.desc }

// Buffer returns the underlying buffer record.
func (s *Surface) Buffer() *Buffer { return s.buf }

// LockOptions control a Lock call.
type LockOptions struct {
	// Owner is the caller's identity for the lock discipline. Must be
	// nonzero; recursive locking works only from the same owner.
	Owner int64

	// ReadOnly requests a lock that promises not to write. A read-only
	// unlock does not bump the seed.
	ReadOnly bool
}

// Lock takes the buffer lock for pixel access and returns the current seed.
// The discipline is recursive single-owner: the first lock records the owner
// and its read-only promise; further locks by the same owner nest. A
// read-only lock cannot be upgraded to writable while held (ErrNotAllowed);
// a writable lock tolerates nested read-only requests without effect. A
// different owner gets ErrBusy immediately; this lock never blocks, it is
// meant for short critical sections around pixel access.
func (s *Surface) Lock(opts LockOptions) (uint32, error) {
	if opts.Owner == 0 {
		return 0, ErrNoOwner
	}
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.lockCount == 0:
		b.lockOwner = opts.Owner
		b.readOnly = opts.ReadOnly
		b.lockCount = 1
	case b.lockOwner == opts.Owner:
		if b.readOnly && !opts.ReadOnly {
			// No silent upgrade from read-only to writable.
			return 0, ErrNotAllowed
		}
		b.lockCount++
	default:
		return 0, ErrBusy
	}
	return b.seed, nil
}

// Unlock releases one level of the lock. On the final unlock of a writable
// lock the seed is incremented, signaling to pollers that contents may have
// changed.
func (s *Surface) Unlock(owner int64) error {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lockCount == 0 {
		return ErrNotLocked
	}
	if b.lockOwner != owner {
		return ErrNotAllowed
	}
	b.lockCount--
	if b.lockCount == 0 {
		if !b.readOnly {
			b.seed++
		}
		b.lockOwner = 0
		b.readOnly = false
	}
	return nil
}

// Seed returns the current change counter.
func (s *Surface) Seed() uint32 {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	return s.buf.seed
}

// Bytes returns the mapped pixel storage. Valid only while the buffer is
// locked; an unlocked buffer returns ErrNotLocked.
func (s *Surface) Bytes() ([]byte, error) {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockCount == 0 {
		return nil, ErrNotLocked
	}
	return b.area.Bytes()[:b.allocSize], nil
}

// IncrementUseCount adds one local reference. The 0→1 transition registers
// a single global reference for this whole team; further local references
// collapse into it.
func (s *Surface) IncrementUseCount() error {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.localUse == 0 {
		if err := s.alloc.reg.IncrementGlobalUseCount(b.id); err != nil {
			return err
		}
	}
	b.localUse++
	return nil
}

// DecrementUseCount drops one local reference; the 1→0 transition releases
// the team's global reference.
func (s *Surface) DecrementUseCount() error {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.localUse == 0 {
		return ErrNotInUse
	}
	if b.localUse == 1 {
		if err := s.alloc.reg.DecrementGlobalUseCount(b.id); err != nil {
			return err
		}
	}
	b.localUse--
	return nil
}

// LocalUseCount returns the per-process reference count.
func (s *Surface) LocalUseCount() int {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	return s.buf.localUse
}

// SetAttachment stores a key→value pair on the buffer, last write wins.
// Attachments are scoped to this process: every Surface wrapping the same
// Buffer sees them, but they never travel through the registry.
func (s *Surface) SetAttachment(key string, value any) {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attachments == nil {
		b.attachments = make(map[string]any)
	}
	b.attachments[key] = value
}

// Attachment returns the value stored under key.
func (s *Surface) Attachment(key string) (any, bool) {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.attachments[key]
	return v, ok
}

// RemoveAttachment deletes the value stored under key.
func (s *Surface) RemoveAttachment(key string) {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.attachments, key)
}

// SetPurgeable transitions the purgeability state and returns the previous
// state. Requesting PurgeEmpty discards the contents immediately. Returning
// to PurgeNonVolatile after a purge succeeds but reports ErrPurged exactly
// once; the caller must notice and repopulate rather than trust stale or
// zeroed pixels.
func (s *Surface) SetPurgeable(state PurgeState) (PurgeState, error) {
	b := s.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.purgeState
	switch state {
	case PurgeEmpty:
		b.contentsPurged = true
		b.purgeState = PurgeVolatile
		clear(b.area.Bytes()[:b.allocSize])
	case PurgeNonVolatile:
		b.purgeState = PurgeNonVolatile
		if b.contentsPurged {
			b.contentsPurged = false
			return old, ErrPurged
		}
	case PurgeVolatile:
		b.purgeState = PurgeVolatile
	}
	return old, nil
}

// ContentsPurged reports whether a purge discarded the contents and no
// repopulation cycle has acknowledged it yet.
func (s *Surface) ContentsPurged() bool {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	return s.buf.contentsPurged
}
