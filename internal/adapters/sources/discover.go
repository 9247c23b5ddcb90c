package sources

import (
	"path/filepath"
	"slices"

	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
)

// discoverIgnores are never searched for manifests.
var discoverIgnores = []string{domain.TargetDirName}

// discoverPackages loads every package manifest below root, skipping target
// and hidden directories. Manifests declaring only a workspace are skipped.
func discoverPackages(walker *fs.Walker, loader ports.ManifestLoader, root string, source domain.SourceID, logger ports.Logger) ([]*domain.Package, error) {
	var manifests []string
	for path := range walker.WalkFiles(root, discoverIgnores) {
		if filepath.Base(path) == domain.ManifestFileName {
			manifests = append(manifests, path)
		}
	}
	slices.Sort(manifests)

	var pkgs []*domain.Package
	var firstErr error
	for _, m := range manifests {
		pkg, err := loader.ReadPackage(m, source)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logger.Debug("skipping manifest " + m + ": " + err.Error())
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	if len(pkgs) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return pkgs, nil
}
