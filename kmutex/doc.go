// Package kmutex implements a table of robust, optionally priority-
// inheriting mutexes with owner-death recovery, in the style of kernel
// semaphore tables: a fixed slot array addressed by ID modulo table size,
// with slot reuse detected through ID generations.
//
// # Robustness
//
// Every mutex is a small state machine. A mutex whose holder task finishes
// without releasing moves to needs-recovery; the next acquirer is granted
// ownership but told via ErrOwnerDead that the protected state may be torn.
// The acquirer either repairs the state and calls MarkConsistent, returning
// the mutex to normal, or releases without doing so, which permanently
// poisons the mutex: every later acquire fails with ErrNotRecoverable and
// all current waiters are woken with that status. There is no single winner
// to a poisoned mutex; everybody must be told.
//
// # Hand-off and fairness
//
// Release transfers ownership directly to the first waiter that is still
// actually blocked, in FIFO order. A waiter that timed out or was canceled
// between enqueue and release is skipped in place; this lazy discard is the
// benign race between timeout and hand-off, not an error.
//
// # Priority inheritance
//
// A priority-inheriting mutex keeps a cached maximum over its live waiters'
// priorities, recomputed whenever the waiter set changes. The holder's
// effective priority is the maximum of its base priority and the cached
// values of every PI mutex it currently holds, recomputed by walking only
// its own held list, never the whole table. Inheritance is single-level:
// if A blocks on a mutex held by B while B blocks on one held by C, C is
// never boosted on A's behalf.
//
// The cached per-mutex maximum is read during recomputation without taking
// the other slots' locks. That cross-lock read takes no consistent snapshot;
// it is an intentional simplification carried over from the original
// single/low-core design. A rewrite targeting hard SMP guarantees would need
// a global lock order or an explicit cross-CPU propagation protocol.
package kmutex
