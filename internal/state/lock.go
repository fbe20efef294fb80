package state

import (
	"os"
	"path/filepath"
	"sync"
)

// Lock is a cross-process exclusive lock keyed by a lock file. Concurrent
// hook invocations for the same session serialize their read-modify-write
// sequences through it. Acquire blocks until the lock is held and returns
// a release function that is safe to call more than once.
type Lock struct {
	path string
}

func NewLock(path string) *Lock {
	return &Lock{path: path}
}

func (l *Lock) Acquire() (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := flockExclusive(file); err != nil {
		_ = file.Close()
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = flockRelease(file)
			_ = file.Close()
		})
	}, nil
}

// WithLock runs fn while holding the lock, releasing it on every exit path
// including a panic inside fn.
func (l *Lock) WithLock(fn func() error) error {
	release, err := l.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
