package kmutex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitPriority(t *testing.T, task *Task, want int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return task.EffectivePriority() == want
	}, 2*time.Second, time.Millisecond)
}

func Test_PriorityBoostAndRestore(t *testing.T) {
	tbl := newTestTable(t, 8)
	low := tbl.NewTask(testTeam, 10)
	high := tbl.NewTask(testTeam, 50)

	id, err := tbl.Create(low, "pi", PriorityInherit)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), low, id))
	require.Equal(t, int32(10), low.EffectivePriority())

	got := make(chan error, 1)
	go func() { got <- tbl.Acquire(context.Background(), high, id) }()
	waitBlocked(t, tbl, id, 1)

	// The holder runs at its most urgent waiter's priority.
	waitPriority(t, low, 50)

	require.NoError(t, tbl.Release(low, id))
	require.NoError(t, <-got)

	// The boost leaves with the mutex.
	require.Equal(t, int32(10), low.EffectivePriority())
	require.Equal(t, int32(50), high.EffectivePriority())
	require.NoError(t, tbl.Release(high, id))
}

func Test_NoBoostWithoutFlag(t *testing.T) {
	tbl := newTestTable(t, 8)
	low := tbl.NewTask(testTeam, 10)
	high := tbl.NewTask(testTeam, 50)

	id, err := tbl.Create(low, "plain", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), low, id))

	got := make(chan error, 1)
	go func() { got <- tbl.Acquire(context.Background(), high, id) }()
	waitBlocked(t, tbl, id, 1)

	require.Equal(t, int32(10), low.EffectivePriority())

	require.NoError(t, tbl.Release(low, id))
	require.NoError(t, <-got)
	require.NoError(t, tbl.Release(high, id))
}

// A waiter that gives up takes its boost with it.
func Test_BoostDropsOnTimeout(t *testing.T) {
	tbl := newTestTable(t, 8)
	low := tbl.NewTask(testTeam, 10)
	mid := tbl.NewTask(testTeam, 30)
	high := tbl.NewTask(testTeam, 50)

	id, err := tbl.Create(low, "pi", PriorityInherit)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), low, id))

	midGot := make(chan error, 1)
	go func() { midGot <- tbl.Acquire(context.Background(), mid, id) }()
	waitBlocked(t, tbl, id, 1)
	waitPriority(t, low, 30)

	err = tbl.AcquireTimeout(context.Background(), high, id, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// With the high waiter gone the boost falls back to the mid one.
	waitPriority(t, low, 30)
	n, err := tbl.WaiterCount(id)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, tbl.Release(low, id))
	require.NoError(t, <-midGot)
	require.Equal(t, int32(10), low.EffectivePriority())
	require.NoError(t, tbl.Release(mid, id))
}

// The effective priority is the max over ALL held priority-inheriting
// mutexes, not just the most recently contended one.
func Test_BoostAcrossHeldList(t *testing.T) {
	tbl := newTestTable(t, 8)
	holder := tbl.NewTask(testTeam, 10)

	m1, err := tbl.Create(holder, "pi1", PriorityInherit)
	require.NoError(t, err)
	m2, err := tbl.Create(holder, "pi2", PriorityInherit)
	require.NoError(t, err)
	require.NoError(t, tbl.Acquire(context.Background(), holder, m1))
	require.NoError(t, tbl.Acquire(context.Background(), holder, m2))

	w1 := tbl.NewTask(testTeam, 30)
	w2 := tbl.NewTask(testTeam, 40)
	got1 := make(chan error, 1)
	got2 := make(chan error, 1)
	go func() { got1 <- tbl.Acquire(context.Background(), w1, m1) }()
	waitBlocked(t, tbl, m1, 1)
	go func() { got2 <- tbl.Acquire(context.Background(), w2, m2) }()
	waitBlocked(t, tbl, m2, 1)

	waitPriority(t, holder, 40)

	// Handing off the 40-waiter's mutex drops the boost to the 30 one.
	require.NoError(t, tbl.Release(holder, m2))
	require.NoError(t, <-got2)
	waitPriority(t, holder, 30)

	require.NoError(t, tbl.Release(holder, m1))
	require.NoError(t, <-got1)
	require.Equal(t, int32(10), holder.EffectivePriority())

	require.NoError(t, tbl.Release(w1, m1))
	require.NoError(t, tbl.Release(w2, m2))
}

// Inheritance does not chain: boosting B on C's behalf never re-boosts a
// task B itself is waiting on.
func Test_SingleLevelInheritance(t *testing.T) {
	tbl := newTestTable(t, 8)
	a := tbl.NewTask(testTeam, 10)
	b := tbl.NewTask(testTeam, 20)
	c := tbl.NewTask(testTeam, 50)

	m1, err := tbl.Create(a, "inner", PriorityInherit)
	require.NoError(t, err)
	m2, err := tbl.Create(b, "outer", PriorityInherit)
	require.NoError(t, err)

	require.NoError(t, tbl.Acquire(context.Background(), a, m1))
	require.NoError(t, tbl.Acquire(context.Background(), b, m2))

	bGot := make(chan error, 1)
	go func() { bGot <- tbl.Acquire(context.Background(), b, m1) }()
	waitBlocked(t, tbl, m1, 1)
	waitPriority(t, a, 20)

	cGot := make(chan error, 1)
	go func() { cGot <- tbl.Acquire(context.Background(), c, m2) }()
	waitBlocked(t, tbl, m2, 1)
	waitPriority(t, b, 50)

	// B is boosted to 50, but A keeps seeing B's enqueue-time priority.
	require.Equal(t, int32(20), a.EffectivePriority())

	require.NoError(t, tbl.Release(a, m1))
	require.NoError(t, <-bGot)
	require.NoError(t, tbl.Release(b, m1))
	require.NoError(t, tbl.Release(b, m2))
	require.NoError(t, <-cGot)
	require.NoError(t, tbl.Release(c, m2))
}
