package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"go.trai.ch/scarb/internal/adapters/flock"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RegistryClient = (*LocalClient)(nil)

// LocalClient serves a registry laid out in a local directory:
// index/<prefix>/<name>.json and dl/<name>-<version>.tar.zst.
type LocalClient struct {
	root string
}

// NewLocalClient creates a client for a file:// registry url.
func NewLocalClient(source domain.SourceID) (*LocalClient, error) {
	u, err := url.Parse(source.URL())
	if err != nil || u.Scheme != "file" {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidSourceID, ""), "url", source.URL())
	}
	root := filepath.FromSlash(u.Path)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.New("local registry path is not a directory"), "path", root)
	}
	return &LocalClient{root: root}, nil
}

// RecordsPath returns where the index file of name lives.
func (c *LocalClient) RecordsPath(name domain.PackageName) string {
	return filepath.Join(c.root, "index", filepath.FromSlash(PackagePrefix(string(name))), string(name)+".json")
}

// ArchivePath returns where the archive of id lives.
func (c *LocalClient) ArchivePath(id domain.PackageID) string {
	return filepath.Join(c.root, "dl", tarballName(id))
}

// GetRecords reads the index file of name. Local registries never use cache keys.
func (c *LocalClient) GetRecords(_ context.Context, name domain.PackageName, _ domain.CacheKey) (domain.IndexRecords, error) {
	path := c.RecordsPath(name)
	//nolint:gosec // Path is built from a validated package name
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.IndexRecords{Status: domain.ResourceNotFound}, nil
	}
	if err != nil {
		return domain.IndexRecords{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}

	var records []domain.IndexRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return domain.IndexRecords{}, zerr.With(zerr.Wrap(err, domain.ErrRegistryProtocol.Error()), "path", path)
	}
	return domain.IndexRecords{Status: domain.ResourceDownloaded, Records: records}, nil
}

// Download copies the archive of id to dest.
func (c *LocalClient) Download(ctx context.Context, id domain.PackageID, dest string) (domain.DownloadedArchive, error) {
	src := c.ArchivePath(id)
	//nolint:gosec // Path is built from a validated package id
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DownloadedArchive{Status: domain.ResourceNotFound}, nil
	}
	if err != nil {
		return domain.DownloadedArchive{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", src)
	}
	defer in.Close() //nolint:errcheck // Read-only file

	if err := writeFileAtomic(ctx, dest, in); err != nil {
		return domain.DownloadedArchive{}, err
	}
	return domain.DownloadedArchive{Status: domain.ResourceDownloaded, Path: dest}, nil
}

// SupportsPublish is false: local registries are populated out of band.
func (c *LocalClient) SupportsPublish() bool {
	return false
}

func tarballName(id domain.PackageID) string {
	return string(id.Name) + "-" + id.Version.String() + domain.TarballExtension
}

// writeFileAtomic streams r into a locked scratch file next to dest and renames it into
// place once the write completed. Concurrent writers of dest serialize on the scratch lock.
func writeFileAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := flock.New(filepath.Dir(dest), nil)
	scratch := "." + filepath.Base(dest) + ".part"
	f, err := dir.OpenRW(ctx, scratch, "download scratch file of "+filepath.Base(dest))
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create scratch file"), "path", dest)
	}
	defer f.Close() //nolint:errcheck // Closed explicitly on success

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return zerr.With(zerr.Wrap(err, "failed to save download on disk"), "path", dest)
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		_ = os.Remove(f.Name())
		return zerr.With(zerr.Wrap(err, "failed to save download on disk"), "path", dest)
	}
	return f.Close()
}
