package ports

import "go.trai.ch/scarb/internal/core/domain"

// ManifestLoader reads Scarb.toml files.
//
//go:generate mockgen -source=manifest.go -destination=mocks/mock_manifest.go -package=mocks
type ManifestLoader interface {
	// LoadWorkspace discovers and loads the workspace containing manifestPath.
	LoadWorkspace(manifestPath string) (*domain.Workspace, error)
	// ReadPackage loads a single package manifest served by source.
	ReadPackage(manifestPath string, source domain.SourceID) (*domain.Package, error)
}
