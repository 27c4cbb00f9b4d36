//go:build unix

package surface

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosmproject/surfkit/surface/pixel"
	"github.com/kosmproject/surfkit/surface/registry"
)

const testTeam = 100

func newTestAllocator(t *testing.T, dir string, team int64) *Allocator {
	t.Helper()
	reg, err := registry.Open(registry.Config{
		Dir: dir, Name: "test-registry.shm", Capacity: 64, Team: team,
	})
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return NewAllocator(NewAreaBackend(dir), reg)
}

func rgbaDesc(w, h int) Descriptor {
	return Descriptor{
		Width:  w,
		Height: h,
		Format: pixel.FormatBGRA8888,
		Usage:  pixel.UsageCPURead | pixel.UsageCPUWrite,
	}
}

func Test_LockUnlockSeed(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(32, 32))
	require.NoError(t, err)
	defer al.Free(s)

	const owner = int64(1)

	seed, err := s.Lock(LockOptions{Owner: owner})
	require.NoError(t, err)
	require.NoError(t, s.Unlock(owner))

	// Writable unlock bumps the seed.
	require.Equal(t, seed+1, s.Seed())

	// Read-only unlock leaves it alone.
	_, err = s.Lock(LockOptions{Owner: owner, ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, s.Unlock(owner))
	require.Equal(t, seed+1, s.Seed())
}

func Test_LockRecursion(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(16, 16))
	require.NoError(t, err)
	defer al.Free(s)

	const owner = int64(7)
	before := s.Seed()

	_, err = s.Lock(LockOptions{Owner: owner})
	require.NoError(t, err)
	_, err = s.Lock(LockOptions{Owner: owner})
	require.NoError(t, err)
	// Nested read-only request under a writable lock is tolerated.
	_, err = s.Lock(LockOptions{Owner: owner, ReadOnly: true})
	require.NoError(t, err)

	require.NoError(t, s.Unlock(owner))
	require.NoError(t, s.Unlock(owner))
	// Still locked; the seed must not have moved yet.
	require.Equal(t, before, s.Seed())

	require.NoError(t, s.Unlock(owner))
	require.Equal(t, before+1, s.Seed())

	require.ErrorIs(t, s.Unlock(owner), ErrNotLocked)
}

func Test_LockNoUpgrade(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(16, 16))
	require.NoError(t, err)
	defer al.Free(s)

	const owner = int64(7)
	_, err = s.Lock(LockOptions{Owner: owner, ReadOnly: true})
	require.NoError(t, err)

	// Read-only cannot silently become writable.
	_, err = s.Lock(LockOptions{Owner: owner})
	require.ErrorIs(t, err, ErrNotAllowed)

	require.NoError(t, s.Unlock(owner))
}

func Test_LockBusyAndOwnership(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(16, 16))
	require.NoError(t, err)
	defer al.Free(s)

	_, err = s.Lock(LockOptions{Owner: 1})
	require.NoError(t, err)

	// Another owner neither locks nor unlocks.
	_, err = s.Lock(LockOptions{Owner: 2})
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, s.Unlock(2), ErrNotAllowed)

	require.NoError(t, s.Unlock(1))

	// Owner identity is mandatory.
	_, err = s.Lock(LockOptions{})
	require.ErrorIs(t, err, ErrNoOwner)
}

func Test_BytesRequiresLock(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(8, 8))
	require.NoError(t, err)
	defer al.Free(s)

	_, err = s.Bytes()
	require.ErrorIs(t, err, ErrNotLocked)

	_, err = s.Lock(LockOptions{Owner: 1})
	require.NoError(t, err)
	px, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, s.Buffer().AllocSize(), len(px))
	// Fresh allocations come back zeroed.
	for _, b := range px[:64] {
		require.Zero(t, b)
	}
	require.NoError(t, s.Unlock(1))
}

func Test_UseCountCollapse(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(16, 16))
	require.NoError(t, err)
	defer al.Free(s)

	reg := al.Registry()

	// Several local references become exactly one global unit.
	require.NoError(t, s.IncrementUseCount())
	require.NoError(t, s.IncrementUseCount())
	require.NoError(t, s.IncrementUseCount())
	require.Equal(t, 3, s.LocalUseCount())

	global, err := reg.GlobalUseCount(s.ID())
	require.NoError(t, err)
	require.Equal(t, int64(1), global)

	require.NoError(t, s.DecrementUseCount())
	require.NoError(t, s.DecrementUseCount())
	global, _ = reg.GlobalUseCount(s.ID())
	require.Equal(t, int64(1), global)

	require.NoError(t, s.DecrementUseCount())
	global, _ = reg.GlobalUseCount(s.ID())
	require.Zero(t, global)

	require.ErrorIs(t, s.DecrementUseCount(), ErrNotInUse)
}

func Test_Attachments(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(16, 16))
	require.NoError(t, err)
	defer al.Free(s)

	_, ok := s.Attachment("compositor.z-order")
	require.False(t, ok)

	s.SetAttachment("compositor.z-order", 4)
	s.SetAttachment("compositor.z-order", 5) // last write wins
	v, ok := s.Attachment("compositor.z-order")
	require.True(t, ok)
	require.Equal(t, 5, v)

	s.RemoveAttachment("compositor.z-order")
	_, ok = s.Attachment("compositor.z-order")
	require.False(t, ok)
}

func Test_Purgeable(t *testing.T) {
	al := newTestAllocator(t, t.TempDir(), testTeam)
	s, err := al.Allocate(rgbaDesc(8, 8))
	require.NoError(t, err)
	defer al.Free(s)

	// Put recognizable content in.
	_, err = s.Lock(LockOptions{Owner: 1})
	require.NoError(t, err)
	px, err := s.Bytes()
	require.NoError(t, err)
	px[0] = 0xFF
	require.NoError(t, s.Unlock(1))

	old, err := s.SetPurgeable(PurgeVolatile)
	require.NoError(t, err)
	require.Equal(t, PurgeNonVolatile, old)

	// Empty discards the contents on the spot.
	_, err = s.SetPurgeable(PurgeEmpty)
	require.NoError(t, err)
	require.True(t, s.ContentsPurged())

	_, err = s.Lock(LockOptions{Owner: 1, ReadOnly: true})
	require.NoError(t, err)
	px, err = s.Bytes()
	require.NoError(t, err)
	require.Zero(t, px[0])
	require.NoError(t, s.Unlock(1))

	// Going back to non-volatile reports the purge exactly once.
	_, err = s.SetPurgeable(PurgeNonVolatile)
	require.ErrorIs(t, err, ErrPurged)
	require.False(t, s.ContentsPurged())

	_, err = s.SetPurgeable(PurgeNonVolatile)
	require.NoError(t, err)
}
