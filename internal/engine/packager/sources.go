package packager

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// rootExcludes are never packaged from the package root.
var rootExcludes = []string{domain.ManifestFileName, domain.LockfileFileName, domain.CairoProjectFileName}

// sourceFiles lists the package directory. Nested packages, the target directory and
// files matching .scarbignore patterns are skipped.
func (p *Packager) sourceFiles(pkg *domain.Package) ([]entry, error) {
	root := pkg.Root()
	ignores, err := readIgnores(root)
	if err != nil {
		return nil, err
	}

	type file struct{ rel, abs string }
	var files []file
	var nested []string
	for abs := range p.walker.WalkFiles(root, ignores) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if dir := path.Dir(rel); dir != "." && path.Base(rel) == domain.ManifestFileName {
			nested = append(nested, dir+"/")
		}
		files = append(files, file{rel: rel, abs: abs})
	}

	md := pkg.Manifest.Metadata
	var out []entry
	for _, f := range files {
		switch {
		case slices.Contains(rootExcludes, f.rel):
		case strings.HasPrefix(f.rel, domain.TargetDirName+"/"):
		case slices.ContainsFunc(nested, func(dir string) bool { return strings.HasPrefix(f.rel, dir) }):
		case f.abs == md.Readme || f.abs == md.LicenseFile:
		default:
			out = append(out, entry{path: f.rel, source: f.abs})
		}
	}
	return out, nil
}

// readIgnores reads file name patterns from .scarbignore, one per line.
func readIgnores(root string) ([]string, error) {
	name := filepath.Join(root, domain.ScarbIgnoreFileName)
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", name)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns, sc.Err()
}
