package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Verifier checks that files a build relies on are still on disk.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Exists reports whether every named file is present in dir.
// Directories do not count as files.
func (v *Verifier) Exists(dir string, names []string) (bool, error) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, zerr.With(zerr.Wrap(err, "failed to stat file"), "path", path)
		}
		if info.IsDir() {
			return false, nil
		}
	}
	return true, nil
}
