package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/adapters/flock"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// cachedRecords is the on-disk form of a package index file.
type cachedRecords struct {
	CacheKey string               `json:"cache_key"`
	Records  []domain.IndexRecord `json:"records"`
}

// Cache layers an on-disk cache over a registry client.
//
// Index files live in <registry>/cache/<ident>/<name>.json next to the cache key
// they were fetched with, and archives in <registry>/dl/<ident>/.
type Cache struct {
	client    ports.RegistryClient
	logger    ports.Logger
	recordDir string
	dlDir     string

	group   singleflight.Group
	mu      sync.Mutex
	records map[domain.PackageName][]domain.IndexRecord
}

// NewCache creates a cache for the registry identified by source below registryDir.
func NewCache(client ports.RegistryClient, source domain.SourceID, registryDir string, logger ports.Logger) *Cache {
	ident := source.Ident()
	return &Cache{
		client:    client,
		logger:    logger,
		recordDir: filepath.Join(registryDir, "cache", ident),
		dlDir:     filepath.Join(registryDir, "dl", ident),
		records:   make(map[domain.PackageName][]domain.IndexRecord),
	}
}

// Client returns the wrapped client.
func (c *Cache) Client() ports.RegistryClient {
	return c.client
}

// Records returns every published version of name.
// Each name is fetched at most once per Cache.
func (c *Cache) Records(ctx context.Context, name domain.PackageName) ([]domain.IndexRecord, error) {
	c.mu.Lock()
	if records, ok := c.records[name]; ok {
		c.mu.Unlock()
		return records, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(name), func() (any, error) {
		records, err := c.fetchRecords(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.records[name] = records
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.IndexRecord), nil
}

// Record returns the index record of id.
func (c *Cache) Record(ctx context.Context, id domain.PackageID) (domain.IndexRecord, error) {
	records, err := c.Records(ctx, id.Name)
	if err != nil {
		return domain.IndexRecord{}, err
	}
	for _, r := range records {
		if r.Version.Compare(id.Version) == 0 {
			return r, nil
		}
	}
	return domain.IndexRecord{}, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "package not found in registry"), "package", id.String())
}

// Archive downloads the archive of id and verifies it against the index checksum.
// It returns the path of the verified archive.
func (c *Cache) Archive(ctx context.Context, id domain.PackageID) (string, error) {
	record, err := c.Record(ctx, id)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(c.dlDir, tarballName(id))
	if verifyFile(ctx, dest, record.Checksum) == nil {
		return dest, nil
	}

	archive, err := c.client.Download(ctx, id, dest)
	if err != nil {
		return "", err
	}
	if archive.Status == domain.ResourceNotFound {
		return "", zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "could not find downloadable archive for package indexed in registry"), "package", id.String())
	}

	if err := verifyFile(ctx, archive.Path, record.Checksum); err != nil {
		_ = os.Remove(archive.Path)
		return "", zerr.With(err, "package", id.String())
	}
	return archive.Path, nil
}

func (c *Cache) fetchRecords(ctx context.Context, name domain.PackageName) ([]domain.IndexRecord, error) {
	path := c.recordsPath(name)
	cached, err := readCachedRecords(path)
	if err != nil {
		c.logger.Warn("ignoring corrupted registry cache entry: " + path)
		cached = nil
	}

	var key domain.CacheKey
	if cached != nil {
		key, _ = domain.ParseCacheKey(cached.CacheKey)
	}

	result, err := c.client.GetRecords(ctx, name, key)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case domain.ResourceNotFound:
		if cached != nil {
			c.logger.Debug("package removed from registry, pruning cache entry: " + string(name))
			_ = os.Remove(path)
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "package not found in registry"), "package", string(name))
	case domain.ResourceInCache:
		if cached == nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrRegistryProtocol, "registry reported a cache hit for an uncached package"), "package", string(name))
		}
		return cached.Records, nil
	default:
		entry := cachedRecords{CacheKey: result.CacheKey.String(), Records: result.Records}
		if err := writeCachedRecords(ctx, path, &entry); err != nil {
			c.logger.Warn("failed to cache registry records: " + err.Error())
		}
		return result.Records, nil
	}
}

func (c *Cache) recordsPath(name domain.PackageName) string {
	return filepath.Join(c.recordDir, string(name)+".json")
}

func readCachedRecords(path string) (*cachedRecords, error) {
	//nolint:gosec // Path is built from a validated package name
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cachedRecords
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func writeCachedRecords(ctx context.Context, path string, entry *cachedRecords) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return writeFileAtomic(ctx, path, bytes.NewReader(data))
}

// verifyFile checks the archive at path under a shared lock so it is never read while
// another process rewrites it.
func verifyFile(ctx context.Context, path string, checksum domain.Checksum) error {
	f, err := flock.New(filepath.Dir(path), nil).OpenRO(ctx, filepath.Base(path), "archive "+filepath.Base(path))
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Read-only file
	if checksum.IsZero() {
		return nil
	}
	return checksum.Verify(f)
}
