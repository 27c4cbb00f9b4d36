// Package surface implements cross-process surface allocation and sharing.
//
// A surface is a described pixel buffer, possibly multi-planar, backed by a
// shared-memory area. The allocating process creates the area and registers
// the surface's geometry in the machine-wide registry; any process that
// learns the surface ID (and, across team boundaries, an access token) can
// clone the area and rebuild a local handle with CreateFromClone.
//
// The package splits into four pieces:
//
//   - Allocator: per-process facade minting IDs and tying everything
//     together
//   - Backend / AreaBackend: creates and frees the backing areas
//   - Surface: the per-process handle with locking, use counts,
//     attachments and purgeability
//   - Buffer: the record behind a handle; never copied, never shared across
//     process boundaries (only its geometry travels, via the registry)
//
// Use counting is two-level: local references within a process collapse
// into a single global (cross-process) reference in the registry, so the
// global count reflects interested teams, not interested threads.
package surface
