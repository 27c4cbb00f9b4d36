package kmutex

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// CreateFlags select per-mutex behavior at creation time.
type CreateFlags uint32

const (
	// Recursive lets the holder reacquire; each acquire needs a matching
	// release.
	Recursive CreateFlags = 1 << iota

	// PriorityInherit boosts the holder to the highest priority among the
	// mutex's waiters.
	PriorityInherit
)

// State is the robustness state of a mutex.
type State int32

const (
	// StateNormal is the ordinary, healthy state.
	StateNormal State = iota

	// StateNeedsRecovery means the previous holder died while holding the
	// mutex. The next acquirer gets ownership plus ErrOwnerDead and is
	// expected to repair the protected data and call MarkConsistent.
	StateNeedsRecovery

	// StateNotRecoverable means a holder released out of needs-recovery
	// without MarkConsistent. Terminal.
	StateNotRecoverable
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateNeedsRecovery:
		return "needs-recovery"
	case StateNotRecoverable:
		return "not-recoverable"
	default:
		return "unknown"
	}
}

const noSlot = int32(-1)

// waiter is one blocked acquire. The wake channel has capacity 1 so the
// releaser never blocks handing off; stale marks a waiter that timed out or
// was canceled and must be skipped when it surfaces at the queue head.
type waiter struct {
	task  *Task
	wake  chan error
	stale bool
}

type slot struct {
	mu sync.Mutex

	idx int32 // own index in the table, fixed at init

	// Current ID while in use. IDs map back to slots by id % len(slots);
	// every reuse advances the ID by the table size so stale IDs miss.
	id     int32
	lastID int32
	inUse  bool

	// Free-list link, meaningful only while the slot is free. The held-list
	// links below are meaningful only while the slot is owned; keeping both
	// sets of fields (rather than overlaying them) trades a few bytes for
	// not being able to confuse one for the other.
	nextFree int32

	name        string
	flags       CreateFlags
	creatorTeam int32
	state       State

	owner     *Task
	recursion int32
	waiters   *queue.Queue

	// Cached max effective priority over live waiters; 0 when none.
	// Written under mu, read lock-free during held-list walks.
	maxWaiterPriority atomic.Int32

	// Links in the owner's held list, indices into the table's slot array.
	// Guarded by Table.heldMu.
	heldNext int32
	heldPrev int32
}

// Table is a fixed-capacity mutex table. The zero value is unusable; use
// NewTable.
type Table struct {
	slots []slot

	// Guards the free list and ID minting.
	mu       sync.Mutex
	freeHead int32
	freeTail int32

	// Guards every held list and effective-priority recomputation. Always
	// acquired after a slot's mu, never before.
	heldMu sync.Mutex

	nextTaskID atomic.Int32
}

// NewTable creates a table with capacity slots. Slots are handed out in
// FIFO order so a deleted mutex's slot is reused as late as possible,
// giving stale IDs the longest window to be caught.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		panic("kmutex: table capacity must be positive")
	}
	tbl := &Table{slots: make([]slot, capacity)}
	for i := range tbl.slots {
		s := &tbl.slots[i]
		s.idx = int32(i)
		s.id = noSlot
		s.lastID = int32(i)
		s.nextFree = int32(i) + 1
		s.heldNext = noSlot
		s.heldPrev = noSlot
	}
	tbl.slots[capacity-1].nextFree = noSlot
	tbl.freeHead = 0
	tbl.freeTail = int32(capacity) - 1
	return tbl
}

// Capacity returns the number of slots in the table.
func (tbl *Table) Capacity() int { return len(tbl.slots) }

// NewTask registers a new task with the given team and base priority.
func (tbl *Table) NewTask(team, priority int32) *Task {
	t := &Task{
		id:       tbl.nextTaskID.Add(1),
		team:     team,
		base:     priority,
		heldHead: noSlot,
	}
	t.effective.Store(priority)
	return t
}

// Create allocates a mutex and returns its ID. The creating task's team is
// recorded for bulk teardown via DeleteTeamMutexes.
func (tbl *Table) Create(creator *Task, name string, flags CreateFlags) (int32, error) {
	if creator.finished {
		return 0, ErrTaskFinished
	}

	tbl.mu.Lock()
	if tbl.freeHead == noSlot {
		tbl.mu.Unlock()
		return 0, ErrNoSlots
	}
	s := &tbl.slots[tbl.freeHead]
	tbl.freeHead = s.nextFree
	if tbl.freeHead == noSlot {
		tbl.freeTail = noSlot
	}
	id := tbl.mintID(s)
	tbl.mu.Unlock()

	s.mu.Lock()
	s.id = id
	s.lastID = id
	s.inUse = true
	s.name = name
	s.flags = flags
	s.creatorTeam = creator.team
	s.state = StateNormal
	s.owner = nil
	s.recursion = 0
	s.waiters = queue.New()
	s.maxWaiterPriority.Store(0)
	s.heldNext = noSlot
	s.heldPrev = noSlot
	s.mu.Unlock()

	return id, nil
}

// mintID picks the next ID for s: previous ID advanced by the table size,
// keeping id % size == slot index and every ID strictly positive. Called
// with tbl.mu held.
func (tbl *Table) mintID(s *slot) int32 {
	size := int32(len(tbl.slots))
	id := s.lastID + size
	if id < size {
		// Wrapped negative; restart the generation sequence.
		id = s.idx + size
	}
	return id
}

// lookup resolves an ID to its slot and locks it. The caller must unlock.
func (tbl *Table) lookup(id int32) (*slot, error) {
	if id <= 0 {
		return nil, ErrBadID
	}
	s := &tbl.slots[int(id)%len(tbl.slots)]
	s.mu.Lock()
	if !s.inUse || s.id != id {
		s.mu.Unlock()
		return nil, ErrBadID
	}
	return s, nil
}

// Delete removes a mutex. Current waiters are woken with ErrDeleted; a
// current holder simply loses the mutex (its next Release fails with
// ErrBadID). Any task may delete any mutex, matching the usual kernel
// semaphore contract.
func (tbl *Table) Delete(id int32) error {
	s, err := tbl.lookup(id)
	if err != nil {
		return err
	}
	tbl.deleteLocked(s)
	return nil
}

// deleteLocked tears down s and returns it to the free list. Called with
// s.mu held; unlocks it.
func (tbl *Table) deleteLocked(s *slot) {
	if s.owner != nil {
		owner := s.owner
		tbl.unlinkHeld(owner, s)
		s.owner = nil
		s.recursion = 0
		tbl.recomputeEffective(owner)
	}
	for s.waiters.Length() > 0 {
		w := s.waiters.Remove().(*waiter)
		if !w.stale {
			w.wake <- ErrDeleted
		}
	}
	s.inUse = false
	s.id = noSlot
	s.name = ""
	s.state = StateNormal
	s.waiters = nil
	s.maxWaiterPriority.Store(0)
	s.mu.Unlock()

	tbl.mu.Lock()
	s.nextFree = noSlot
	if tbl.freeTail == noSlot {
		tbl.freeHead = s.idx
	} else {
		tbl.slots[tbl.freeTail].nextFree = s.idx
	}
	tbl.freeTail = s.idx
	tbl.mu.Unlock()
}

// DeleteTeamMutexes deletes every mutex created by the given team and
// returns how many were deleted. Used at team teardown.
func (tbl *Table) DeleteTeamMutexes(team int32) int {
	deleted := 0
	for i := range tbl.slots {
		s := &tbl.slots[i]
		s.mu.Lock()
		if s.inUse && s.creatorTeam == team {
			tbl.deleteLocked(s) // unlocks
			deleted++
			continue
		}
		s.mu.Unlock()
	}
	return deleted
}

// Info describes one live mutex, as reported by Walk.
type Info struct {
	ID          int32
	Name        string
	Flags       CreateFlags
	State       State
	CreatorTeam int32
	OwnerTask   int32 // 0 when unheld
	WaiterCount int
}

// Walk calls fn for every live mutex. Slots are visited one at a time under
// their own locks; the walk is not an atomic snapshot of the table.
func (tbl *Table) Walk(fn func(Info) bool) {
	for i := range tbl.slots {
		s := &tbl.slots[i]
		s.mu.Lock()
		if !s.inUse {
			s.mu.Unlock()
			continue
		}
		info := Info{
			ID:          s.id,
			Name:        s.name,
			Flags:       s.flags,
			State:       s.state,
			CreatorTeam: s.creatorTeam,
			WaiterCount: s.liveWaiters(),
		}
		if s.owner != nil {
			info.OwnerTask = s.owner.id
		}
		s.mu.Unlock()
		if !fn(info) {
			return
		}
	}
}

// WaiterCount returns the number of tasks currently blocked on the mutex.
func (tbl *Table) WaiterCount(id int32) (int, error) {
	s, err := tbl.lookup(id)
	if err != nil {
		return 0, err
	}
	n := s.liveWaiters()
	s.mu.Unlock()
	return n, nil
}

// liveWaiters counts non-stale queue entries. Called with s.mu held.
func (s *slot) liveWaiters() int {
	n := 0
	for i := 0; i < s.waiters.Length(); i++ {
		if !s.waiters.Get(i).(*waiter).stale {
			n++
		}
	}
	return n
}

// linkHeld puts s at the head of t's held list. Called with s.mu held.
func (tbl *Table) linkHeld(t *Task, s *slot) {
	tbl.heldMu.Lock()
	s.heldPrev = noSlot
	s.heldNext = t.heldHead
	if t.heldHead != noSlot {
		tbl.slots[t.heldHead].heldPrev = s.idx
	}
	t.heldHead = s.idx
	tbl.heldMu.Unlock()
}

// unlinkHeld removes s from t's held list. Called with s.mu held.
func (tbl *Table) unlinkHeld(t *Task, s *slot) {
	tbl.heldMu.Lock()
	if s.heldPrev != noSlot {
		tbl.slots[s.heldPrev].heldNext = s.heldNext
	} else {
		t.heldHead = s.heldNext
	}
	if s.heldNext != noSlot {
		tbl.slots[s.heldNext].heldPrev = s.heldPrev
	}
	s.heldNext = noSlot
	s.heldPrev = noSlot
	tbl.heldMu.Unlock()
}

// recomputeEffective rebuilds t's effective priority from its base priority
// and the cached waiter maxima of the priority-inheriting mutexes it holds.
func (tbl *Table) recomputeEffective(t *Task) {
	tbl.heldMu.Lock()
	eff := t.base
	for idx := t.heldHead; idx != noSlot; idx = tbl.slots[idx].heldNext {
		held := &tbl.slots[idx]
		if held.flags&PriorityInherit == 0 {
			continue
		}
		if p := held.maxWaiterPriority.Load(); p > eff {
			eff = p
		}
	}
	tbl.heldMu.Unlock()
	t.effective.Store(eff)
}

// refreshWaiterPriority recomputes s's cached waiter maximum and, for a
// priority-inheriting mutex, the holder's effective priority with it.
// Called with s.mu held.
func (tbl *Table) refreshWaiterPriority(s *slot) {
	var max int32
	for i := 0; i < s.waiters.Length(); i++ {
		w := s.waiters.Get(i).(*waiter)
		if w.stale {
			continue
		}
		if p := w.task.EffectivePriority(); p > max {
			max = p
		}
	}
	s.maxWaiterPriority.Store(max)
	if s.flags&PriorityInherit != 0 && s.owner != nil {
		tbl.recomputeEffective(s.owner)
	}
}
