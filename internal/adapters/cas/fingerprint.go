package cas

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FingerprintStore = (*Fingerprints)(nil)

// Fingerprints implements ports.FingerprintStore with one plain text file per component.
type Fingerprints struct{}

// NewFingerprints creates a fingerprint store.
func NewFingerprints() *Fingerprints {
	return &Fingerprints{}
}

// IsFresh reports whether the file at path holds digest.
func (f *Fingerprints) IsFresh(path, digest string) (bool, error) {
	//nolint:gosec // Path is provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to read fingerprint"), "path", path)
	}
	return string(bytes.TrimSpace(data)) == digest, nil
}

// Write stores digest at path.
func (f *Fingerprints) Write(path, digest string) error {
	if err := writeAtomic(filepath.Clean(path), []byte(digest)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFingerprintWriteFailed.Error()), "path", path)
	}
	return nil
}
