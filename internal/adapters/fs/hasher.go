package fs

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileHasher = (*Hasher)(nil)

// Hasher hashes files with XXHash.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeSourcesHash hashes every file with extension ext under root.
// Paths are hashed relative to root with forward slashes so the value
// does not depend on where the directory lives.
func (h *Hasher) ComputeSourcesHash(root, ext string) (uint64, error) {
	var rels []string
	for path := range h.walker.WalkExtension(root, ext, nil) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	slices.Sort(rels)

	hasher := domain.NewStableHasher()
	hasher.WriteUint64(uint64(len(rels)))
	for _, rel := range rels {
		sum, err := h.ComputeFileHash(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return 0, err
		}
		hasher.WriteString(rel)
		hasher.WriteUint64(sum)
	}
	return hasher.Sum64(), nil
}
