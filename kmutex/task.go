package kmutex

import "sync/atomic"

// A Task is the unit of mutex ownership. Goroutines carry no usable
// identity, so callers mint a Task per logical thread of execution and pass
// it to every table operation made on that thread's behalf.
//
// A task's effective priority is its base priority possibly boosted by
// priority-inheriting mutexes it holds. Larger values mean more urgent.
type Task struct {
	id   int32
	team int32
	base int32

	effective atomic.Int32

	// Head of the intrusive list of held mutex slots, index into the
	// table's slot array, -1 when empty. Guarded by Table.heldMu.
	heldHead int32

	finished bool
}

// ID returns the task's table-unique identifier.
func (t *Task) ID() int32 { return t.id }

// Team returns the team the task was created under.
func (t *Task) Team() int32 { return t.team }

// BasePriority returns the priority the task was created with.
func (t *Task) BasePriority() int32 { return t.base }

// EffectivePriority returns the current scheduling priority, including any
// boost inherited from waiters on priority-inheriting mutexes the task
// holds.
func (t *Task) EffectivePriority() int32 { return t.effective.Load() }
