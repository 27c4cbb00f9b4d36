package kmutex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_AcquireRelease(t *testing.T) {
	tbl := newTestTable(t, 8)
	task := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(task, "m", 0)
	require.NoError(t, err)

	require.NoError(t, tbl.Acquire(context.Background(), task, id))
	require.NoError(t, tbl.Release(task, id))

	// Releasing an unheld mutex is a caller error.
	require.ErrorIs(t, tbl.Release(task, id), ErrNotOwner)
}

func Test_NonRecursiveDeadlock(t *testing.T) {
	tbl := newTestTable(t, 8)
	task := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(task, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), task, id))

	require.ErrorIs(t, tbl.Acquire(context.Background(), task, id), ErrDeadlock)

	// The failed reacquire must not have consumed the ownership.
	require.NoError(t, tbl.Release(task, id))
}

func Test_RecursiveAcquire(t *testing.T) {
	tbl := newTestTable(t, 8)
	task := tbl.NewTask(testTeam, 10)
	peer := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(task, "m", Recursive)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, tbl.Acquire(context.Background(), task, id))
	}

	// Two of three releases keep the mutex held.
	require.NoError(t, tbl.Release(task, id))
	require.NoError(t, tbl.Release(task, id))
	require.ErrorIs(t, tbl.AcquireTimeout(context.Background(), peer, id, 0), ErrTimeout)

	require.NoError(t, tbl.Release(task, id))
	require.NoError(t, tbl.Acquire(context.Background(), peer, id))
	require.NoError(t, tbl.Release(peer, id))
}

func Test_ReleaseNotOwner(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	other := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	require.ErrorIs(t, tbl.Release(other, id), ErrNotOwner)
	require.NoError(t, tbl.Release(holder, id))
}

// A zero timeout on a contended mutex must fail immediately without ever
// joining the wait queue.
func Test_TryAcquireContended(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	peer := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	require.ErrorIs(t, tbl.AcquireTimeout(context.Background(), peer, id, 0), ErrTimeout)
	n, err := tbl.WaiterCount(id)
	require.NoError(t, err)
	require.Zero(t, n)
}

func Test_FIFOHandoff(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	type result struct {
		seq int
		err error
	}
	order := make(chan result, 3)
	for i := 1; i <= 3; i++ {
		i := i
		w := tbl.NewTask(testTeam, 10)
		go func() {
			err := tbl.Acquire(context.Background(), w, id)
			order <- result{i, err}
			if err == nil {
				tbl.Release(w, id)
			}
		}()
		// Serialize the enqueues so arrival order is known.
		waitBlocked(t, tbl, id, i)
	}

	require.NoError(t, tbl.Release(holder, id))
	for want := 1; want <= 3; want++ {
		got := <-order
		require.NoError(t, got.err)
		require.Equal(t, want, got.seq)
	}
}

func Test_AcquireTimeout(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	peer := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	err = tbl.AcquireTimeout(context.Background(), peer, id, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// The timed-out waiter no longer counts and must not receive the
	// hand-off.
	n, err := tbl.WaiterCount(id)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, tbl.Release(holder, id))
	require.NoError(t, tbl.Acquire(context.Background(), peer, id))
	require.NoError(t, tbl.Release(peer, id))
}

func Test_AcquireDeadline(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	peer := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	err = tbl.AcquireDeadline(context.Background(), peer, id, time.Now().Add(10*time.Millisecond))
	require.ErrorIs(t, err, ErrTimeout)

	// A deadline already in the past behaves like a try-acquire.
	err = tbl.AcquireDeadline(context.Background(), peer, id, time.Now().Add(-time.Second))
	require.ErrorIs(t, err, ErrTimeout)
}

func Test_AcquireContextCancel(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	peer := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	go func() { got <- tbl.Acquire(ctx, peer, id) }()
	waitBlocked(t, tbl, id, 1)

	cancel()
	require.ErrorIs(t, <-got, context.Canceled)
	n, err := tbl.WaiterCount(id)
	require.NoError(t, err)
	require.Zero(t, n)
}

func Test_OwnerDeathUnheldRecovery(t *testing.T) {
	tbl := newTestTable(t, 8)
	doomed := tbl.NewTask(testTeam, 10)
	next := tbl.NewTask(testTeam, 10)
	after := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(doomed, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), doomed, id))

	tbl.FinishTask(doomed)

	var state State
	tbl.Walk(func(info Info) bool {
		state = info.State
		return false
	})
	require.Equal(t, StateNeedsRecovery, state)

	// The next acquirer owns the mutex but is told about the death.
	require.ErrorIs(t, tbl.Acquire(context.Background(), next, id), ErrOwnerDead)
	require.NoError(t, tbl.MarkConsistent(next, id))
	require.NoError(t, tbl.Release(next, id))

	// Repaired: later acquires are clean.
	require.NoError(t, tbl.Acquire(context.Background(), after, id))
	require.NoError(t, tbl.Release(after, id))
}

func Test_OwnerDeathHandoffToWaiter(t *testing.T) {
	tbl := newTestTable(t, 8)
	doomed := tbl.NewTask(testTeam, 10)
	blocked := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(doomed, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), doomed, id))

	got := make(chan error, 1)
	go func() { got <- tbl.Acquire(context.Background(), blocked, id) }()
	waitBlocked(t, tbl, id, 1)

	tbl.FinishTask(doomed)

	// The waiter is woken with ownership and the death notice.
	require.ErrorIs(t, <-got, ErrOwnerDead)
	require.NoError(t, tbl.MarkConsistent(blocked, id))
	require.NoError(t, tbl.Release(blocked, id))
}

func Test_UnrepairedReleasePoisons(t *testing.T) {
	tbl := newTestTable(t, 8)
	doomed := tbl.NewTask(testTeam, 10)
	careless := tbl.NewTask(testTeam, 10)
	blocked := tbl.NewTask(testTeam, 10)
	late := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(doomed, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), doomed, id))
	tbl.FinishTask(doomed)

	require.ErrorIs(t, tbl.Acquire(context.Background(), careless, id), ErrOwnerDead)

	got := make(chan error, 1)
	go func() { got <- tbl.Acquire(context.Background(), blocked, id) }()
	waitBlocked(t, tbl, id, 1)

	// Releasing without MarkConsistent condemns the mutex for everyone:
	// the waiter and all future acquirers, uniformly.
	require.NoError(t, tbl.Release(careless, id))
	require.ErrorIs(t, <-got, ErrNotRecoverable)
	require.ErrorIs(t, tbl.Acquire(context.Background(), late, id), ErrNotRecoverable)

	var state State
	tbl.Walk(func(info Info) bool {
		state = info.State
		return false
	})
	require.Equal(t, StateNotRecoverable, state)
}

func Test_MarkConsistentGuards(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)
	other := tbl.NewTask(testTeam, 10)

	id, err := tbl.Create(holder, "m", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, id))

	// Healthy mutexes have nothing to repair.
	require.ErrorIs(t, tbl.MarkConsistent(holder, id), ErrNotRecovering)
	require.ErrorIs(t, tbl.MarkConsistent(other, id), ErrNotOwner)

	require.NoError(t, tbl.Release(holder, id))
}

func Test_FinishTaskReleasesAllHeld(t *testing.T) {
	tbl := newTestTable(t, 8)
	doomed := tbl.NewTask(testTeam, 10)
	next := tbl.NewTask(testTeam, 10)

	var ids []int32
	for i := 0; i < 3; i++ {
		id, err := tbl.Create(doomed, "held", 0)
		require.NoError(t, err)
		require.NoError(t, tbl.Acquire(context.Background(), doomed, id))
		ids = append(ids, id)
	}

	tbl.FinishTask(doomed)

	for _, id := range ids {
		require.ErrorIs(t, tbl.Acquire(context.Background(), next, id), ErrOwnerDead)
		require.NoError(t, tbl.MarkConsistent(next, id))
		require.NoError(t, tbl.Release(next, id))
	}
}
