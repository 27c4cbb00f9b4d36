package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kosmproject/surfkit/internal/format"
	"github.com/kosmproject/surfkit/internal/shmfile"
)

// DefaultName is the file name of the machine-wide registry area.
const DefaultName = "kosm-surface-registry.shm"

// Config configures a registry handle. The zero value is usable: it attaches
// to (or creates) the default machine-wide registry as the current process's
// team.
type Config struct {
	// Dir is the directory holding the registry area. Defaults to the
	// shared-memory base directory (/dev/shm where available).
	Dir string

	// Name is the registry file name. Defaults to DefaultName.
	Name string

	// Capacity is the slot count used when this process ends up creating the
	// registry. When attaching to an existing registry the creator's
	// capacity wins. Defaults to format.DefaultCapacity.
	Capacity int

	// Team identifies the calling process for ownership checks. Defaults to
	// the process ID.
	Team int64

	// TombstoneThreshold is the tombstone count that triggers compaction.
	// Defaults to capacity/8.
	TombstoneThreshold int
}

func (c *Config) fill() {
	if c.Dir == "" {
		c.Dir = shmfile.BaseDir()
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Capacity <= 0 {
		c.Capacity = format.DefaultCapacity
	}
	if c.Team == 0 {
		c.Team = int64(os.Getpid())
	}
	if c.TombstoneThreshold <= 0 {
		c.TombstoneThreshold = c.Capacity / 8
	}
}

// Registry is a per-process handle onto the shared table. Handles are safe
// for concurrent use within a process; cross-process exclusion rides on the
// area's advisory file lock.
type Registry struct {
	sf        *shmfile.File
	team      int64
	capacity  int
	threshold int

	lk opLock
}

// Open attaches to the registry area, creating and initializing it if this
// is the first process on the machine to do so. The create/attach race is
// resolved by shmfile's atomic publish: attachers never see a
// half-initialized header.
func Open(cfg Config) (*Registry, error) {
	cfg.fill()
	path := filepath.Join(cfg.Dir, cfg.Name)
	size := format.RegistryAreaSize(cfg.Capacity)

	init := func(data []byte) error {
		format.PutU32(data, format.HeaderCapacityOffset, uint32(cfg.Capacity))
		format.PutI64(data, format.HeaderCreatorTeamOffset, cfg.Team)
		format.PutU64(data, format.HeaderCreatedAtOffset, uint64(time.Now().UnixNano()))
		copy(data[format.RegistrySignatureOffset:], format.RegistrySignature)
		return nil
	}

	sf, _, err := shmfile.FindOrCreate(path, size, init)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}

	data := sf.Bytes()
	if !format.IsRegistrySignature(data) {
		sf.Close()
		return nil, format.ErrBadSignature
	}
	capacity := int(format.ReadU32(data, format.HeaderCapacityOffset))
	if capacity <= 0 || format.RegistryAreaSize(capacity) != len(data) {
		sf.Close()
		return nil, format.ErrBadCapacity
	}

	r := &Registry{
		sf:        sf,
		team:      cfg.Team,
		capacity:  capacity,
		threshold: cfg.TombstoneThreshold,
	}
	r.lk.sf = sf
	return r, nil
}

// Close detaches this process from the registry. The shared area stays in
// place for other processes.
func (r *Registry) Close() error { return r.sf.Close() }

// Path returns the registry area's file path.
func (r *Registry) Path() string { return r.sf.Path() }

// Capacity returns the slot count of the attached table.
func (r *Registry) Capacity() int { return r.capacity }

// Team returns the team identity this handle operates as.
func (r *Registry) Team() int64 { return r.team }

// Sync flushes the shared area to its backing file.
func (r *Registry) Sync() error { return r.sf.Sync() }

// Register inserts (or idempotently refreshes) the entry for id. The caller
// becomes the owner team. Re-registering an ID owned by another team fails
// with ErrExists; a full table fails with ErrNoSpace.
func (r *Registry) Register(id SurfaceID, info Info) error {
	if !validID(id) {
		return ErrBadID
	}
	r.lk.lock()
	defer r.lk.unlock()

	slot, existing := r.findInsertSlot(id)
	if slot < 0 {
		return ErrNoSpace
	}
	e := r.entryAt(slot)
	if existing {
		if e.ownerTeam() != r.team {
			return ErrExists
		}
		info.OwnerTeam = r.team
		e.store(id, info)
		return nil
	}
	wasTombstone := e.tombstone()
	clear(e.b)
	info.OwnerTeam = r.team
	e.store(id, info)
	if wasTombstone {
		r.addTombstoneCount(-1)
	}
	r.addEntryCount(1)
	if logRegistry {
		fmt.Fprintf(os.Stderr, "[REG] register id=%d slot=%d team=%d %dx%d size=%d\n",
			id, slot, r.team, info.Width, info.Height, info.AllocSize)
	}
	return nil
}

// Unregister removes the entry for id. It fails with ErrInUse while the
// global use count is nonzero; callers must drain every cross-process
// reference first. The slot becomes a tombstone; crossing the tombstone
// threshold triggers a full compaction.
func (r *Registry) Unregister(id SurfaceID) error {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return ErrNotFound
	}
	e := r.entryAt(slot)
	if e.globalUse() > 0 {
		return ErrInUse
	}
	e.markTombstone()
	r.addEntryCount(-1)
	r.addTombstoneCount(1)
	if logRegistry {
		fmt.Fprintf(os.Stderr, "[REG] unregister id=%d slot=%d tombstones=%d\n",
			id, slot, r.tombstoneCountLocked())
	}
	if r.tombstoneCountLocked() > r.threshold {
		r.compact()
	}
	return nil
}

// LookupInfo returns the entry for id. Only the owning team may look up
// without a token; cross-team readers go through LookupInfoWithToken.
func (r *Registry) LookupInfo(id SurfaceID) (Info, error) {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return Info{}, ErrNotFound
	}
	e := r.entryAt(slot)
	if e.ownerTeam() != r.team {
		return Info{}, ErrNotAllowed
	}
	return e.info(), nil
}

// IncrementGlobalUseCount adds one cross-process reference to id.
func (r *Registry) IncrementGlobalUseCount(id SurfaceID) error {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return ErrNotFound
	}
	e := r.entryAt(slot)
	e.setGlobalUse(e.globalUse() + 1)
	return nil
}

// DecrementGlobalUseCount drops one cross-process reference from id. A
// decrement below zero fails with ErrNotInUse and leaves the count at zero.
func (r *Registry) DecrementGlobalUseCount(id SurfaceID) error {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return ErrNotFound
	}
	e := r.entryAt(slot)
	n := e.globalUse()
	if n <= 0 {
		return ErrNotInUse
	}
	e.setGlobalUse(n - 1)
	return nil
}

// GlobalUseCount returns the cross-process reference count of id.
func (r *Registry) GlobalUseCount(id SurfaceID) (int64, error) {
	r.lk.lock()
	defer r.lk.unlock()

	slot := r.findSlot(id)
	if slot < 0 {
		return 0, ErrNotFound
	}
	return r.entryAt(slot).globalUse(), nil
}

// IsInUse reports whether any process still holds a reference to id.
func (r *Registry) IsInUse(id SurfaceID) (bool, error) {
	n, err := r.GlobalUseCount(id)
	return n > 0, err
}

// EntryCount returns the number of live entries.
func (r *Registry) EntryCount() int {
	r.lk.lock()
	defer r.lk.unlock()
	return int(format.ReadU32(r.sf.Bytes(), format.HeaderEntryCountOffset))
}

// TombstoneCount returns the number of tombstoned slots awaiting compaction.
func (r *Registry) TombstoneCount() int {
	r.lk.lock()
	defer r.lk.unlock()
	return r.tombstoneCountLocked()
}

// Walk calls fn for every live entry, in slot order. fn must not call back
// into the registry. Used by inspection tooling.
func (r *Registry) Walk(fn func(id SurfaceID, info Info) bool) {
	r.lk.lock()
	defer r.lk.unlock()

	for i := 0; i < r.capacity; i++ {
		e := r.entryAt(i)
		if !e.live() {
			continue
		}
		if !fn(SurfaceID(e.id()), e.info()) {
			return
		}
	}
}

// ---- slot addressing ----

func validID(id SurfaceID) bool {
	return id != 0 && uint64(id) != format.TombstoneID
}

func (r *Registry) entryAt(slot int) entry {
	off := format.EntryOffset(slot)
	return entry{b: r.sf.Bytes()[off : off+format.EntrySize]}
}

// findSlot locates the slot holding id, or -1. Probing stops at the first
// genuinely empty slot (a tombstone keeps the chain alive) or after one
// full wrap.
func (r *Registry) findSlot(id SurfaceID) int {
	if !validID(id) {
		return -1
	}
	start := int(uint64(id-1) % uint64(r.capacity))
	for i := 0; i < r.capacity; i++ {
		slot := (start + i) % r.capacity
		e := r.entryAt(slot)
		if e.empty() {
			return -1
		}
		if e.id() == uint64(id) {
			return slot
		}
	}
	return -1
}

// findInsertSlot returns the slot to write id into and whether that slot
// already holds id. An exact match wins over any insertable slot; otherwise
// the first empty or tombstone slot along the probe chain is used. Returns
// -1 when one full wrap finds nothing.
func (r *Registry) findInsertSlot(id SurfaceID) (int, bool) {
	start := int(uint64(id-1) % uint64(r.capacity))
	insert := -1
	for i := 0; i < r.capacity; i++ {
		slot := (start + i) % r.capacity
		e := r.entryAt(slot)
		switch {
		case e.id() == uint64(id):
			return slot, true
		case e.empty():
			if insert < 0 {
				insert = slot
			}
			// Beyond a genuine empty slot the ID cannot exist.
			return insert, false
		case e.tombstone():
			if insert < 0 {
				insert = slot
			}
		}
	}
	return insert, false
}

// compact rehashes every live entry into a scratch image of the table,
// eliminating all tombstones, then copies the result back over the shared
// array. Runs under the registry lock.
func (r *Registry) compact() {
	if logRegistry {
		fmt.Fprintf(os.Stderr, "[REG] compact: %d tombstones over threshold %d\n",
			r.tombstoneCountLocked(), r.threshold)
	}
	scratch := make([]byte, r.capacity*format.EntrySize)
	for i := 0; i < r.capacity; i++ {
		e := r.entryAt(i)
		if !e.live() {
			continue
		}
		start := int((e.id() - 1) % uint64(r.capacity))
		for j := 0; j < r.capacity; j++ {
			slot := (start + j) % r.capacity
			dst := scratch[slot*format.EntrySize : (slot+1)*format.EntrySize]
			if format.ReadU64(dst, format.EntryIDOffset) == 0 {
				copy(dst, e.b)
				break
			}
		}
	}
	copy(r.sf.Bytes()[format.HeaderSize:], scratch)
	format.PutU32(r.sf.Bytes(), format.HeaderTombstoneCountOffset, 0)
}

// ---- header counters ----

func (r *Registry) tombstoneCountLocked() int {
	return int(format.ReadU32(r.sf.Bytes(), format.HeaderTombstoneCountOffset))
}

func (r *Registry) addEntryCount(delta int) {
	b := r.sf.Bytes()
	n := int(format.ReadU32(b, format.HeaderEntryCountOffset)) + delta
	format.PutU32(b, format.HeaderEntryCountOffset, uint32(n))
}

func (r *Registry) addTombstoneCount(delta int) {
	b := r.sf.Bytes()
	n := int(format.ReadU32(b, format.HeaderTombstoneCountOffset)) + delta
	format.PutU32(b, format.HeaderTombstoneCountOffset, uint32(n))
}
