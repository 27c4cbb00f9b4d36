package kmutex

import "errors"

var (
	// ErrNoSlots indicates the table has no free mutex slot.
	ErrNoSlots = errors.New("kmutex: no free mutex slot")

	// ErrBadID indicates an ID that names no live mutex (never created,
	// deleted, or a stale ID from a reused slot).
	ErrBadID = errors.New("kmutex: bad mutex id")

	// ErrNotOwner indicates a release or consistency call by a task that
	// does not hold the mutex.
	ErrNotOwner = errors.New("kmutex: not owner")

	// ErrDeadlock indicates a non-recursive mutex reacquired by its holder.
	ErrDeadlock = errors.New("kmutex: deadlock")

	// ErrOwnerDead reports that ownership WAS granted, but the previous
	// holder died while holding the mutex. The new holder must inspect the
	// protected state and call MarkConsistent before releasing, or the
	// mutex becomes permanently unrecoverable.
	ErrOwnerDead = errors.New("kmutex: previous owner died")

	// ErrNotRecoverable indicates a mutex that was released from recovery
	// without MarkConsistent. Terminal: every acquire fails forever.
	ErrNotRecoverable = errors.New("kmutex: not recoverable")

	// ErrNotRecovering indicates MarkConsistent on a mutex that is not in
	// the needs-recovery state.
	ErrNotRecovering = errors.New("kmutex: not in recovery")

	// ErrDeleted indicates the mutex was deleted while waiting on it.
	ErrDeleted = errors.New("kmutex: mutex deleted")

	// ErrTimeout indicates the acquire deadline passed before ownership
	// could be granted.
	ErrTimeout = errors.New("kmutex: acquire timed out")

	// ErrTaskFinished indicates an operation on behalf of a finished task.
	ErrTaskFinished = errors.New("kmutex: task already finished")
)
