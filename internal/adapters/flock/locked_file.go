package flock

import (
	"context"
	"os"
	"time"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// LockedFile is a file holding an OS-level lock until Close.
type LockedFile struct {
	*os.File
}

// Close releases the lock and closes the file.
func (l *LockedFile) Close() error {
	if l.File == nil {
		return nil
	}
	_ = unlock(l.File)
	err := l.File.Close()
	l.File = nil
	return err
}

func acquire(ctx context.Context, file *os.File, exclusive bool, description string, reporter ports.Reporter) (*LockedFile, error) {
	ok, err := tryLock(file, exclusive)
	if err != nil {
		_ = file.Close()
		return nil, lockError(file, err)
	}
	if ok {
		return &LockedFile{File: file}, nil
	}

	if reporter != nil {
		reporter.Status("Blocking", "waiting for file lock on "+description)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}

		ok, err := tryLock(file, exclusive)
		if err != nil {
			_ = file.Close()
			return nil, lockError(file, err)
		}
		if ok {
			return &LockedFile{File: file}, nil
		}
	}
}

func lockError(file *os.File, err error) error {
	return zerr.Wrap(err, domain.ErrLockFailed.Error()+": "+file.Name())
}
