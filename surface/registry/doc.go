// Package registry implements the machine-wide surface registry: a shared
// memory area holding an open-addressed hash table that maps surface IDs to
// ownership, geometry, and a cross-process use count.
//
// # Sharing model
//
// The first process to open the registry creates and initializes the backing
// area; every later process attaches to the same file and maps the same
// header+entry-array layout. The layout is a fixed binary contract defined
// in internal/format; there is no version negotiation between processes.
//
// # Table discipline
//
// Slots are addressed by (id-1) mod capacity with linear probing. Deleted
// slots become tombstones, distinct from never-used slots, so probe chains
// through them stay intact. Once tombstones accumulate past a threshold the
// table is compacted in place, eliminating all tombstones and bounding probe
// chain growth from register/unregister churn.
//
// # Concurrency
//
// Every operation holds a process-local mutex plus the file's advisory lock
// for the duration of the table access. Coarse, and deliberately so: the
// table is small, operations are O(1) amortized, and the file lock is the
// only exclusion primitive visible to every attached process. There is no
// lock-free fast path anywhere.
//
// # Access control
//
// Plain lookups succeed only for the team that registered the surface.
// Cross-team access goes through access tokens: the owner creates a
// (secret, generation) pair and hands it to a peer, who presents it with
// LookupInfoWithToken. RevokeAllAccess regenerates the pair, invalidating
// every previously issued token at once.
package registry
