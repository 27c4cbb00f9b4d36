package registry

import (
	"sync"

	"github.com/kosmproject/surfkit/internal/shmfile"
)

// opLock is the coarse-grained exclusion every registry operation runs
// under: a process-local mutex stacked on the area's advisory file lock.
// flock is per open file description, so the mutex handles threads of this
// process and the file lock handles everybody else.
type opLock struct {
	mu sync.Mutex
	sf *shmfile.File
}

func (l *opLock) lock() {
	l.mu.Lock()
	if err := l.sf.Lock(); err != nil {
		// Without the file lock, cross-process table mutation would corrupt
		// shared state. No safe way to continue.
		l.mu.Unlock()
		panic("registry: cannot acquire registry file lock: " + err.Error())
	}
}

func (l *opLock) unlock() {
	l.sf.Unlock()
	l.mu.Unlock()
}
