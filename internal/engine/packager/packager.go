// Package packager builds the deterministic source archive of a package.
package packager

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/adapters/tarball" //nolint:depguard // Archive format shared with the registry source
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileWalker enumerates the files of a package directory.
type FileWalker interface {
	WalkFiles(root string, ignores []string) iter.Seq[string]
}

// Result describes a written archive.
type Result struct {
	Path     string
	Checksum domain.Checksum
	Files    []string
}

// Packager lists and archives package sources.
type Packager struct {
	archiver *tarball.Archiver
	walker   FileWalker
	reporter ports.Reporter
	logger   ports.Logger
}

// New creates a Packager.
func New(archiver *tarball.Archiver, walker FileWalker, reporter ports.Reporter, logger ports.Logger) *Packager {
	return &Packager{archiver: archiver, walker: walker, reporter: reporter, logger: logger}
}

// entry is one archive file. Generated entries are produced only when the archive is written.
type entry struct {
	path     string
	source   string
	generate func() ([]byte, error)
}

// List returns the archive paths of pkg in archive order, VERSION first.
func (p *Packager) List(pkg *domain.Package) ([]string, error) {
	recipe, err := p.recipe(pkg)
	if err != nil {
		return nil, err
	}
	out := []string{domain.VersionFileName}
	for _, e := range recipe {
		out = append(out, e.path)
	}
	return out, nil
}

// Package writes target/package/<name>-<version>.tar.zst.
func (p *Packager) Package(ctx context.Context, pkg *domain.Package, targetDir string) (*Result, error) {
	p.reporter.Status("Packaging", pkg.ID.String())

	recipe, err := p.recipe(pkg)
	if err != nil {
		return nil, err
	}
	files := make([]tarball.File, 0, len(recipe))
	var uncompressed int64
	for _, e := range recipe {
		f := tarball.File{ArchivePath: e.path, SourcePath: e.source}
		if e.generate != nil {
			if f.Content, err = e.generate(); err != nil {
				return nil, zerr.With(err, "package", pkg.ID.String())
			}
			uncompressed += int64(len(f.Content))
		} else if info, err := os.Stat(e.source); err == nil {
			uncompressed += info.Size()
		}
		files = append(files, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := p.archiver.PackBytes(archiveName(pkg), files)
	if err != nil {
		return nil, zerr.With(err, "package", pkg.ID.String())
	}
	sum, err := domain.ComputeChecksum(domain.ChecksumSHA256, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dir := domain.PackageDir(targetDir)
	path := filepath.Join(dir, archiveName(pkg)+domain.TarballExtension)
	if err := writeAtomic(dir, path, data); err != nil {
		return nil, err
	}
	p.logger.Debug(fmt.Sprintf("wrote %s (%s)", path, sum))

	listed := []string{domain.VersionFileName}
	for _, e := range recipe {
		listed = append(listed, e.path)
	}
	p.reporter.Status("Packaged", fmt.Sprintf("%d files, %s (%s compressed)",
		len(listed), byteSize(uncompressed), byteSize(int64(len(data)))))
	return &Result{Path: path, Checksum: sum, Files: listed}, nil
}

// recipe lists the archive entries of pkg except VERSION, sorted by path.
func (p *Packager) recipe(pkg *domain.Package) ([]entry, error) {
	sources, err := p.sourceFiles(pkg)
	if err != nil {
		return nil, err
	}
	check := make([]tarball.File, 0, len(sources))
	for _, e := range sources {
		check = append(check, tarball.File{ArchivePath: e.path})
	}
	if err := tarball.CheckReserved(check); err != nil {
		return nil, zerr.With(err, "package", pkg.ID.String())
	}

	recipe := append(sources,
		entry{path: domain.ManifestFileName, generate: func() ([]byte, error) { return normalizeManifest(pkg) }},
		entry{path: domain.OriginalManifestFileName, source: pkg.ManifestPath},
	)
	md := pkg.Manifest.Metadata
	for _, extra := range []string{md.Readme, md.LicenseFile} {
		if extra == "" {
			continue
		}
		name := filepath.Base(extra)
		recipe = slices.DeleteFunc(recipe, func(e entry) bool { return e.path == name })
		recipe = append(recipe, entry{path: name, source: extra})
	}
	slices.SortFunc(recipe, func(a, b entry) int { return strings.Compare(a.path, b.path) })
	return recipe, nil
}

func archiveName(pkg *domain.Package) string {
	return fmt.Sprintf("%s-%s", pkg.ID.Name, pkg.ID.Version)
}

func writeAtomic(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temporary file"), "path", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, "failed to write archive"), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write archive"), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write archive"), "path", path)
	}
	return nil
}

// byteSize renders n with a binary unit, e.g. "512B" or "3.4KiB".
func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
