package ports

import "go.trai.ch/scarb/internal/core/domain"

// LockfileStore reads and writes Scarb.lock.
//
//go:generate mockgen -source=lockfile.go -destination=mocks/mock_lockfile.go -package=mocks
type LockfileStore interface {
	// Read returns nil, nil when the file does not exist.
	Read(path string) (*domain.Lockfile, error)
	// Write stores lock and reports whether the file content changed.
	Write(path string, lock *domain.Lockfile) (bool, error)
}
