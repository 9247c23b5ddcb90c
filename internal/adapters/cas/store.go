// Package cas persists incremental compilation artifacts and component fingerprints.
package cas

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ArtifactStore = (*Store)(nil)

// Store implements ports.ArtifactStore with one CBOR file per component.
type Store struct {
	enc   cbor.EncMode
	mu    sync.RWMutex
	cache map[string]*domain.IncrementalArtifact
}

// NewStore creates a new artifact store.
func NewStore() (*Store, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to configure artifact encoder")
	}
	return &Store{enc: enc, cache: make(map[string]*domain.IncrementalArtifact)}, nil
}

// Get retrieves the artifact stored at path.
func (s *Store) Get(path string) (*domain.IncrementalArtifact, error) {
	path = filepath.Clean(path)

	s.mu.RLock()
	cached, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	var artifact domain.IncrementalArtifact
	if err := cbor.Unmarshal(data, &artifact); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}

	s.mu.Lock()
	s.cache[path] = &artifact
	s.mu.Unlock()
	return &artifact, nil
}

// Put stores the artifact at path.
func (s *Store) Put(path string, artifact *domain.IncrementalArtifact) error {
	path = filepath.Clean(path)

	data, err := s.enc.Marshal(artifact)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := writeAtomic(path, data); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}

	s.mu.Lock()
	s.cache[path] = artifact
	s.mu.Unlock()
	return nil
}

// writeAtomic replaces path so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Removed after rename already
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
