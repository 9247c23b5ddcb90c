package flock

import (
	"context"
	"path/filepath"
	"sync"
)

var advisoryLocks sync.Map // absolute path -> *AdvisoryLock

// AdvisoryLock is a process-wide lock backed by a file lock.
// Every guard acquired in the process shares the same underlying file lock,
// which is released when the last guard is released.
type AdvisoryLock struct {
	fs          *Filesystem
	path        string
	description string

	sem  chan struct{}
	mu   sync.Mutex
	refs int
	file *LockedFile
}

func advisoryLockFor(fs *Filesystem, path, description string) *AdvisoryLock {
	key := filepath.Join(fs.PathUnchecked(), path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	lock := &AdvisoryLock{
		fs:          fs,
		path:        path,
		description: description,
		sem:         make(chan struct{}, 1),
	}
	actual, _ := advisoryLocks.LoadOrStore(key, lock)
	return actual.(*AdvisoryLock)
}

// AdvisoryGuard keeps an AdvisoryLock held until Release.
type AdvisoryGuard struct {
	lock *AdvisoryLock
	once sync.Once
}

// Acquire returns a guard, taking the file lock if no guard is alive.
func (l *AdvisoryLock) Acquire(ctx context.Context) (*AdvisoryGuard, error) {
	l.mu.Lock()
	if l.refs > 0 {
		l.refs++
		l.mu.Unlock()
		return &AdvisoryGuard{lock: l}, nil
	}
	l.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()

	l.mu.Lock()
	if l.refs > 0 {
		l.refs++
		l.mu.Unlock()
		return &AdvisoryGuard{lock: l}, nil
	}
	l.mu.Unlock()

	file, err := l.fs.OpenRW(ctx, l.path, l.description)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.file = file
	l.refs = 1
	l.mu.Unlock()
	return &AdvisoryGuard{lock: l}, nil
}

// Held reports whether any guard is alive in this process.
func (l *AdvisoryLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs > 0
}

// Release drops the guard. It is safe to call more than once.
func (g *AdvisoryGuard) Release() error {
	var err error
	g.once.Do(func() {
		l := g.lock
		l.mu.Lock()
		defer l.mu.Unlock()

		l.refs--
		if l.refs == 0 && l.file != nil {
			err = l.file.Close()
			l.file = nil
		}
	})
	return err
}
