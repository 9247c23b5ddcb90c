// Package lockfile reads and writes Scarb.lock.
package lockfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// Header is the first line of every generated lockfile.
const Header = "# Code generated by scarb DO NOT EDIT.\n"

var _ ports.LockfileStore = (*Store)(nil)

type document struct {
	Version  int     `toml:"version"`
	Packages []entry `toml:"package"`
}

type entry struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source,omitempty"`
	Checksum     string   `toml:"checksum,omitempty"`
	Dependencies []string `toml:"dependencies,multiline,omitempty"`
}

// Store implements ports.LockfileStore on the local filesystem.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Read parses the lockfile at path. A missing file yields nil, nil.
func (s *Store) Read(path string) (*domain.Lockfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // lockfile lives next to the workspace manifest
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileReadFailed.Error()), "path", path)
	}
	lock, err := Decode(data)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileReadFailed.Error()), "path", path)
	}
	return lock, nil
}

// Write stores lock at path unless the file already has identical content.
func (s *Store) Write(path string, lock *domain.Lockfile) (bool, error) {
	data, err := Encode(lock)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}

	existing, err := os.ReadFile(path) //nolint:gosec // lockfile lives next to the workspace manifest
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrLockfileWriteFailed.Error()), "path", path)
	}
	return true, nil
}

// Encode renders lock in canonical form.
func Encode(lock *domain.Lockfile) ([]byte, error) {
	lock.Normalize()
	doc := document{Version: domain.LockfileFormatVersion}
	for _, p := range lock.Packages {
		e := entry{Name: string(p.Name), Version: p.Version.String()}
		if !p.Source.IsZero() {
			e.Source = p.Source.PrettyURL()
		}
		if !p.Checksum.IsZero() {
			e.Checksum = p.Checksum.String()
		}
		for _, d := range p.Dependencies {
			e.Dependencies = append(e.Dependencies, string(d))
		}
		doc.Packages = append(doc.Packages, e)
	}

	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("\n")
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses lockfile content.
func Decode(data []byte) (*domain.Lockfile, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version != domain.LockfileFormatVersion {
		return nil, zerr.With(zerr.New("unsupported lockfile version"), "version", doc.Version)
	}

	packages := make([]domain.LockedPackage, 0, len(doc.Packages))
	for _, e := range doc.Packages {
		p, err := e.toDomain()
		if err != nil {
			return nil, zerr.With(err, "package", e.Name)
		}
		packages = append(packages, p)
	}
	return domain.NewLockfile(packages), nil
}

func (e entry) toDomain() (domain.LockedPackage, error) {
	name, err := domain.NewPackageName(e.Name)
	if err != nil {
		return domain.LockedPackage{}, err
	}
	version, err := domain.ParseVersion(e.Version)
	if err != nil {
		return domain.LockedPackage{}, err
	}
	p := domain.LockedPackage{Name: name, Version: version}
	if e.Source != "" {
		if p.Source, err = domain.ParseSourceID(e.Source); err != nil {
			return domain.LockedPackage{}, err
		}
	}
	if e.Checksum != "" {
		if p.Checksum, err = domain.ParseChecksum(e.Checksum); err != nil {
			return domain.LockedPackage{}, err
		}
	}
	for _, d := range e.Dependencies {
		dep, err := domain.NewPackageName(d)
		if err != nil {
			return domain.LockedPackage{}, fmt.Errorf("invalid dependency %q: %w", d, err)
		}
		p.Dependencies = append(p.Dependencies, dep)
	}
	return p, nil
}
