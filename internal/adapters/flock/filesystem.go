// Package flock implements scoped filesystems guarded by advisory file locks.
package flock

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

const cacheDirTag = "Signature: 8a477f597d28d172789f06886806bc55\n" +
	"# This file is a cache directory tag created by scarb.\n" +
	"# For information about cache directory tags see https://bford.info/cachedir/\n"

// pollInterval is how often a contended lock is retried.
const pollInterval = 50 * time.Millisecond

// Filesystem is a directory whose creation is deferred until first use.
type Filesystem struct {
	root     string
	output   bool
	reporter ports.Reporter
}

// New returns a scoped filesystem rooted at root.
// reporter receives the "Blocking" status on lock contention and may be nil.
func New(root string, reporter ports.Reporter) *Filesystem {
	return &Filesystem{root: root, reporter: reporter}
}

// NewOutputDir returns a scoped filesystem that writes CACHEDIR.TAG when created.
func NewOutputDir(root string, reporter ports.Reporter) *Filesystem {
	return &Filesystem{root: root, output: true, reporter: reporter}
}

// Child returns a filesystem for a sub-directory.
func (f *Filesystem) Child(sub string) *Filesystem {
	return &Filesystem{root: filepath.Join(f.root, sub), reporter: f.reporter}
}

// PathUnchecked returns the root without creating it.
func (f *Filesystem) PathUnchecked() string {
	return f.root
}

// Exists reports whether the root directory exists.
func (f *Filesystem) Exists() bool {
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

// PathExistent creates the root if needed and returns it.
func (f *Filesystem) PathExistent() (string, error) {
	if f.Exists() {
		return f.root, nil
	}
	if err := os.MkdirAll(f.root, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create directory"), "path", f.root)
	}
	if f.output {
		tag := filepath.Join(f.root, domain.CacheDirTagFileName)
		if err := os.WriteFile(tag, []byte(cacheDirTag), domain.FilePerm); err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to write cache directory tag"), "path", tag)
		}
	}
	return f.root, nil
}

// Join returns root/path without creating anything.
func (f *Filesystem) Join(path string) string {
	return filepath.Join(f.root, path)
}

// Recreate removes and recreates the root.
// Output directories are never recreated.
func (f *Filesystem) Recreate() error {
	if f.output {
		panic("cannot recreate output filesystem: " + f.root)
	}
	if err := os.RemoveAll(f.root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove directory"), "path", f.root)
	}
	_, err := f.PathExistent()
	return err
}

// MarkOK records that the directory was completely populated.
func (f *Filesystem) MarkOK() error {
	root, err := f.PathExistent()
	if err != nil {
		return err
	}
	path := filepath.Join(root, domain.OkFileName)
	if err := os.WriteFile(path, nil, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write marker"), "path", path)
	}
	return nil
}

// IsOK reports whether MarkOK was called on this directory.
func (f *Filesystem) IsOK() bool {
	_, err := os.Stat(filepath.Join(f.root, domain.OkFileName))
	return err == nil
}

// OpenRW truncates or creates path under an exclusive lock.
func (f *Filesystem) OpenRW(ctx context.Context, path, description string) (*LockedFile, error) {
	file, err := f.open(path, os.O_RDWR|os.O_CREATE)
	if err != nil {
		return nil, err
	}
	locked, err := acquire(ctx, file, true, description, f.reporter)
	if err != nil {
		return nil, err
	}
	if err := file.Truncate(0); err != nil {
		_ = locked.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to truncate file"), "path", file.Name())
	}
	return locked, nil
}

// OpenRO opens an existing file under a shared lock.
func (f *Filesystem) OpenRO(ctx context.Context, path, description string) (*LockedFile, error) {
	file, err := f.open(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return acquire(ctx, file, false, description, f.reporter)
}

func (f *Filesystem) open(path string, flag int) (*os.File, error) {
	root, err := f.PathExistent()
	if err != nil {
		return nil, err
	}
	full := filepath.Join(root, path)
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(full), domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(full))
		}
	}
	//nolint:gosec // path is scoped under the filesystem root
	file, err := os.OpenFile(full, flag, domain.FilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", full)
	}
	return file, nil
}

// AdvisoryLock returns the process-wide advisory lock for path.
func (f *Filesystem) AdvisoryLock(path, description string) *AdvisoryLock {
	return advisoryLockFor(f, path, description)
}
