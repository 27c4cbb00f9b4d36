//go:build unix

package shmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CreateExclusive creates and maps a new shared-memory file of the given
// size. It fails with os.ErrExist if the path already exists. The mapping is
// zero-filled by the kernel.
func CreateExclusive(path string, size int) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmfile: invalid size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	sf, err := finishCreate(f, path, size)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return sf, nil
}

// FindOrCreate maps the shared-memory file at path, creating and
// initializing it first if it does not exist yet. init is invoked on the
// mapping of a freshly created file before it becomes visible to anyone
// else; the atomic link(2) publish guarantees other processes never observe
// a partially initialized file. The returned bool is true when this call was
// the creator.
func FindOrCreate(path string, size int, init func(data []byte) error) (*File, bool, error) {
	// Fast path: somebody already published it.
	if sf, err := Attach(path); err == nil {
		return sf, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	staging := tmpPath(path)
	sf, err := CreateExclusive(staging, size)
	if err != nil {
		return nil, false, err
	}
	if init != nil {
		if err := init(sf.data); err != nil {
			sf.Close()
			os.Remove(staging)
			return nil, false, err
		}
	}
	if err := sf.Sync(); err != nil {
		sf.Close()
		os.Remove(staging)
		return nil, false, err
	}

	// Publish. link fails with EEXIST if another creator won the race.
	linkErr := unix.Link(staging, path)
	os.Remove(staging)
	if linkErr == nil {
		sf.path = path
		return sf, true, nil
	}
	sf.Close()
	if !errors.Is(linkErr, unix.EEXIST) {
		return nil, false, &os.LinkError{Op: "link", Old: staging, New: path, Err: linkErr}
	}
	sf, err = Attach(path)
	if err != nil {
		return nil, false, err
	}
	return sf, false, nil
}

// Attach opens and maps an existing shared-memory file read/write.
func Attach(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()
	if size > int64(^uint(0)>>1) {
		f.Close()
		return nil, ErrTooLarge
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shmfile: mmap %s: %w", path, err)
	}
	return &File{f: f, data: data, path: path}, nil
}

func finishCreate(f *os.File, path string, size int) (*File, error) {
	if err := f.Truncate(int64(size)); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmfile: mmap %s: %w", path, err)
	}
	return &File{f: f, data: data, path: path}, nil
}

// Lock takes the advisory exclusive lock on the file. flock is per open file
// description, so in-process callers still need their own mutual exclusion
// on top; this lock serializes against other processes only.
func (sf *File) Lock() error {
	return unix.Flock(int(sf.f.Fd()), unix.LOCK_EX)
}

// Unlock releases the advisory lock.
func (sf *File) Unlock() error {
	return unix.Flock(int(sf.f.Fd()), unix.LOCK_UN)
}

// Sync flushes the mapping to the backing file.
func (sf *File) Sync() error {
	if len(sf.data) == 0 {
		return nil
	}
	return unix.Msync(sf.data, unix.MS_SYNC)
}

// Close unmaps and closes the file. The file itself stays in place for other
// attached processes; use Remove to unlink it.
func (sf *File) Close() error {
	var first error
	if sf.data != nil {
		err := unix.Munmap(sf.data)
		if err != nil && !errors.Is(err, unix.EINVAL) {
			// EINVAL on double-unmap is treated as a no-op.
			first = err
		}
		sf.data = nil
	}
	if sf.f != nil {
		if err := sf.f.Close(); err != nil && first == nil {
			first = err
		}
		sf.f = nil
	}
	return first
}

// Remove unlinks the backing file. Existing mappings in other processes
// survive until they unmap.
func (sf *File) Remove() error {
	err := os.Remove(sf.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
