// Package shmfile manages the shared-memory files backing surface areas and
// the machine-wide surface registry.
//
// A shared-memory file is an ordinary file in a tmpfs-backed directory,
// mapped MAP_SHARED by every attaching process. Creation uses an atomic
// publish protocol: the creator fully initializes a temporary file and then
// link(2)s it into place, so a concurrently attaching process either finds no
// file at all or a completely initialized one. This is what makes the
// first-process-wins registry bootstrap race safe.
package shmfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

var (
	// ErrUnsupported indicates the host OS has no shared mapping support.
	ErrUnsupported = errors.New("shmfile: shared mappings not supported on this platform")

	// ErrTooLarge indicates a requested size that cannot be mapped.
	ErrTooLarge = errors.New("shmfile: size too large to map")
)

// File is an open, mapped shared-memory file.
type File struct {
	f    *os.File
	data []byte
	path string
}

// Path returns the file system path of the mapping.
func (sf *File) Path() string { return sf.path }

// Bytes returns the shared mapping. Writes are visible to every process
// attached to the same file.
func (sf *File) Bytes() []byte { return sf.data }

// Size returns the mapped length in bytes.
func (sf *File) Size() int { return len(sf.data) }

// BaseDir returns the preferred directory for shared-memory files: /dev/shm
// where it exists (Linux tmpfs), the system temp directory otherwise.
func BaseDir() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// tmpPath derives a creator-private staging path next to path. The pid keeps
// two racing creators from clobbering each other's staging file.
func tmpPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".tmp."+strconv.Itoa(os.Getpid()))
}
