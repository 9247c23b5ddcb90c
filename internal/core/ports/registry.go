package ports

import (
	"context"

	"go.trai.ch/scarb/internal/core/domain"
)

// RegistryClient talks to one package registry.
//
//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type RegistryClient interface {
	// GetRecords fetches the index records of a package.
	// A non-zero cacheKey makes the request conditional.
	GetRecords(ctx context.Context, name domain.PackageName, cacheKey domain.CacheKey) (domain.IndexRecords, error)
	// Download writes the archive of id to dest.
	Download(ctx context.Context, id domain.PackageID, dest string) (domain.DownloadedArchive, error)
	// SupportsPublish reports whether the registry accepts uploads.
	SupportsPublish() bool
}
