package kmutex

import (
	"context"
	"time"
)

// Acquire blocks until the calling task owns the mutex, the context is
// canceled, or the mutex is deleted or poisoned.
//
// A nil return or ErrOwnerDead both mean ownership was granted; ErrOwnerDead
// additionally tells the caller the previous owner died mid-critical-section
// and the protected state needs inspection (see MarkConsistent). All other
// errors mean ownership was NOT granted.
func (tbl *Table) Acquire(ctx context.Context, task *Task, id int32) error {
	return tbl.acquire(ctx, task, id, false, time.Time{})
}

// AcquireTimeout is Acquire with a relative timeout. A zero or negative
// timeout degenerates to a try-acquire: it fails with ErrTimeout instead of
// queueing when the mutex is contended.
func (tbl *Table) AcquireTimeout(ctx context.Context, task *Task, id int32, timeout time.Duration) error {
	return tbl.acquire(ctx, task, id, true, time.Now().Add(timeout))
}

// AcquireDeadline is Acquire with an absolute deadline.
func (tbl *Table) AcquireDeadline(ctx context.Context, task *Task, id int32, deadline time.Time) error {
	return tbl.acquire(ctx, task, id, true, deadline)
}

func (tbl *Table) acquire(ctx context.Context, task *Task, id int32, hasDeadline bool, deadline time.Time) error {
	if task.finished {
		return ErrTaskFinished
	}
	s, err := tbl.lookup(id)
	if err != nil {
		return err
	}

	switch {
	case s.owner == nil:
		if s.state == StateNotRecoverable {
			s.mu.Unlock()
			return ErrNotRecoverable
		}
		s.owner = task
		s.recursion = 1
		tbl.linkHeld(task, s)
		needsRecovery := s.state == StateNeedsRecovery
		s.mu.Unlock()
		if needsRecovery {
			return ErrOwnerDead
		}
		return nil

	case s.owner == task:
		if s.flags&Recursive == 0 {
			s.mu.Unlock()
			return ErrDeadlock
		}
		s.recursion++
		s.mu.Unlock()
		return nil
	}

	// Contended. A non-positive budget means try-acquire: report timeout
	// without ever joining the queue.
	if hasDeadline && !deadline.After(time.Now()) {
		s.mu.Unlock()
		return ErrTimeout
	}

	w := &waiter{task: task, wake: make(chan error, 1)}
	s.waiters.Add(w)
	tbl.refreshWaiterPriority(s)
	s.mu.Unlock()

	var timeout <-chan time.Time
	if hasDeadline {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-w.wake:
		return err
	case <-ctx.Done():
		return tbl.abandonWait(s, id, w, ctx.Err())
	case <-timeout:
		return tbl.abandonWait(s, id, w, ErrTimeout)
	}
}

// abandonWait handles a waiter giving up (timeout or cancellation). The
// give-up races with a concurrent hand-off; both happen under s.mu, so
// either the grant already landed on the wake channel, in which case the
// caller owns the mutex after all and gets the grant status, or the waiter
// is still queued and is marked stale in place. Stale entries stay queued
// until they surface at the head; only the cached priority is fixed up now.
func (tbl *Table) abandonWait(s *slot, id int32, w *waiter, cause error) error {
	s.mu.Lock()
	select {
	case err := <-w.wake:
		s.mu.Unlock()
		return err
	default:
	}
	w.stale = true
	if s.inUse && s.id == id {
		tbl.refreshWaiterPriority(s)
	}
	s.mu.Unlock()
	return cause
}

// Release gives up one level of ownership. The outermost release either
// hands the mutex to the first live waiter in FIFO order or leaves it
// unheld.
//
// Releasing a mutex still in needs-recovery (no MarkConsistent was made)
// poisons it: the state becomes not-recoverable, every waiter is woken with
// ErrNotRecoverable, and all future acquires fail the same way.
func (tbl *Table) Release(task *Task, id int32) error {
	s, err := tbl.lookup(id)
	if err != nil {
		return err
	}
	if s.owner != task {
		s.mu.Unlock()
		return ErrNotOwner
	}
	s.recursion--
	if s.recursion > 0 {
		s.mu.Unlock()
		return nil
	}
	tbl.releaseOwnedLocked(s, task, nil)
	return nil
}

// releaseOwnedLocked performs the outermost release of s by owner, handing
// off with grantStatus (nil for a normal release, ErrOwnerDead when the
// owner died). Called with s.mu held; unlocks it.
func (tbl *Table) releaseOwnedLocked(s *slot, owner *Task, grantStatus error) {
	tbl.unlinkHeld(owner, s)
	s.owner = nil
	s.recursion = 0
	tbl.recomputeEffective(owner)

	if s.state == StateNeedsRecovery && grantStatus == nil {
		// Released without repair. Poison and tell everyone.
		s.state = StateNotRecoverable
		for s.waiters.Length() > 0 {
			w := s.waiters.Remove().(*waiter)
			if !w.stale {
				w.wake <- ErrNotRecoverable
			}
		}
		s.maxWaiterPriority.Store(0)
		s.mu.Unlock()
		return
	}

	for s.waiters.Length() > 0 {
		w := s.waiters.Remove().(*waiter)
		if w.stale {
			continue
		}
		s.owner = w.task
		s.recursion = 1
		tbl.linkHeld(w.task, s)
		w.wake <- grantStatus
		break
	}
	tbl.refreshWaiterPriority(s)
	s.mu.Unlock()
}

// MarkConsistent declares the state protected by a needs-recovery mutex
// repaired, returning it to normal. Only the current holder may call it.
func (tbl *Table) MarkConsistent(task *Task, id int32) error {
	s, err := tbl.lookup(id)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	if s.owner != task {
		return ErrNotOwner
	}
	if s.state != StateNeedsRecovery {
		return ErrNotRecovering
	}
	s.state = StateNormal
	return nil
}

// FinishTask retires a task. Every mutex it still holds is flipped to
// needs-recovery and handed to its first live waiter with ErrOwnerDead, or
// left unheld in needs-recovery if nobody is waiting. The task cannot be
// used afterwards.
func (tbl *Table) FinishTask(task *Task) {
	if task.finished {
		return
	}
	task.finished = true

	for {
		// Snapshot the head under heldMu, then reacquire in slot-lock
		// order and recheck ownership; the list may move between the two
		// looks but only by our own hand-offs below.
		tbl.heldMu.Lock()
		idx := task.heldHead
		tbl.heldMu.Unlock()
		if idx == noSlot {
			return
		}

		s := &tbl.slots[idx]
		s.mu.Lock()
		if s.owner != task {
			s.mu.Unlock()
			continue
		}
		s.state = StateNeedsRecovery
		tbl.releaseOwnedLocked(s, task, ErrOwnerDead) // unlocks
	}
}
