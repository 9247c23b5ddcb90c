package ports

import "go.trai.ch/scarb/internal/core/domain"

// ArtifactStore persists incremental compilation artifacts.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ArtifactStore interface {
	// Get returns nil, nil if not found.
	Get(path string) (*domain.IncrementalArtifact, error)
	// Put stores the artifact at path.
	Put(path string, artifact *domain.IncrementalArtifact) error
}

// FingerprintStore persists component digests between builds.
type FingerprintStore interface {
	// IsFresh reports whether the file at path holds digest.
	IsFresh(path, digest string) (bool, error)
	// Write stores digest at path.
	Write(path, digest string) error
}
