package ports

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
)

//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks

// PackageRegistry answers dependency queries and materializes packages.
type PackageRegistry interface {
	// Query returns every summary that could satisfy dep.
	Query(ctx context.Context, dep domain.ManifestDependency) ([]domain.Summary, error)
	// Download materializes the package on disk.
	Download(ctx context.Context, id domain.PackageID) (*domain.Package, error)
}

// Source is one backend: path, git, registry or std.
type Source interface {
	PackageRegistry
	// ID returns the source this backend serves.
	ID() domain.SourceID
	// SupportsPublish reports whether Publish can succeed.
	SupportsPublish() bool
	// Publish uploads a packaged archive.
	Publish(ctx context.Context, id domain.PackageID, archivePath string) error
}
