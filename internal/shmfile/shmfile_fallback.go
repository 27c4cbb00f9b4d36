//go:build !unix

package shmfile

// CreateExclusive is unsupported on this platform.
func CreateExclusive(path string, size int) (*File, error) {
	return nil, ErrUnsupported
}

// FindOrCreate is unsupported on this platform.
func FindOrCreate(path string, size int, init func(data []byte) error) (*File, bool, error) {
	return nil, false, ErrUnsupported
}

// Attach is unsupported on this platform.
func Attach(path string) (*File, error) {
	return nil, ErrUnsupported
}

func (sf *File) Lock() error   { return ErrUnsupported }
func (sf *File) Unlock() error { return ErrUnsupported }
func (sf *File) Sync() error   { return ErrUnsupported }
func (sf *File) Close() error  { return ErrUnsupported }
func (sf *File) Remove() error { return ErrUnsupported }
