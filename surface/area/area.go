// Package area provides named shared-memory regions, the allocation unit
// backing surface buffers. An area is created by one process and may be
// cloned into any other process that learns its ID.
package area

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kosmproject/surfkit/internal/shmfile"
)

var (
	// ErrNotFound indicates no area with the given ID exists.
	ErrNotFound = errors.New("area: not found")
)

// ID identifies an area machine-wide. The high 32 bits carry the creating
// team, the low 32 bits a per-team sequence number, so concurrently created
// areas never collide.
type ID int64

// filePrefix tags every area file so stray files in the base directory are
// never mistaken for areas.
const filePrefix = "kosm-area-"

var nextSeq atomic.Int64

// Area is a mapped shared-memory region.
type Area struct {
	id   ID
	name string
	sf   *shmfile.File
}

// Create allocates a new area of the given size. The name is a debug tag
// carried in the file name; it does not need to be unique.
func Create(dir, name string, size int) (*Area, error) {
	id := ID(int64(os.Getpid())<<32 | nextSeq.Add(1))
	name = sanitize(name)
	sf, err := shmfile.CreateExclusive(filepath.Join(dir, fileName(id, name)), size)
	if err != nil {
		return nil, fmt.Errorf("area: create %q: %w", name, err)
	}
	return &Area{id: id, name: name, sf: sf}, nil
}

// Clone attaches the existing area with the given ID into this process. The
// returned Area shares pages with the creator; Close it when done, but never
// Delete it.
func Clone(dir string, id ID) (*Area, error) {
	path, name, _, err := find(dir, id)
	if err != nil {
		return nil, err
	}
	sf, err := shmfile.Attach(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("area: clone %d: %w", id, err)
	}
	return &Area{id: id, name: name, sf: sf}, nil
}

// Info describes an area without mapping it.
type Info struct {
	ID   ID
	Name string
	Size int
}

// GetInfo looks up an area by ID.
func GetInfo(dir string, id ID) (Info, error) {
	_, name, size, err := find(dir, id)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: id, Name: name, Size: size}, nil
}

// ID returns the machine-wide area ID.
func (a *Area) ID() ID { return a.id }

// Name returns the debug tag the area was created with.
func (a *Area) Name() string { return a.name }

// Size returns the mapped size in bytes.
func (a *Area) Size() int { return a.sf.Size() }

// Bytes returns the shared mapping.
func (a *Area) Bytes() []byte { return a.sf.Bytes() }

// Close unmaps the area from this process. The area itself survives for
// other processes still attached.
func (a *Area) Close() error { return a.sf.Close() }

// Delete unmaps the area and removes its backing file. Only the creator
// should delete; clones in other processes keep their mappings until they
// close, but no new clone can attach afterwards.
func (a *Area) Delete() error {
	if err := a.sf.Remove(); err != nil {
		return err
	}
	return a.sf.Close()
}

func fileName(id ID, name string) string {
	return filePrefix + strconv.FormatInt(int64(id), 10) + "-" + name + ".shm"
}

func find(dir string, id ID) (path, name string, size int, err error) {
	prefix := filePrefix + strconv.FormatInt(int64(id), 10) + "-"
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.shm"))
	if err != nil || len(matches) == 0 {
		return "", "", 0, ErrNotFound
	}
	path = matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return "", "", 0, ErrNotFound
	}
	base := filepath.Base(path)
	name = strings.TrimSuffix(strings.TrimPrefix(base, prefix), ".shm")
	return path, name, int(info.Size()), nil
}

// sanitize keeps area names safe to embed in a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
