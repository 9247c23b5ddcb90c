package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RegistryClient = (*HTTPClient)(nil)

// IndexConfigPath is the well-known location of the registry config, relative to the registry url.
const IndexConfigPath = "api/v1/index/config.json"

const (
	headerETag            = "ETag"
	headerLastModified    = "Last-Modified"
	headerIfNoneMatch     = "If-None-Match"
	headerIfModifiedSince = "If-Modified-Since"
)

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// ConfigCacheDir holds cached registry configs, one <ident>.json per registry.
	ConfigCacheDir string
	Offline        bool
	// Retries is how many times a request failing to connect is retried.
	Retries int
}

// HTTPClient talks to a registry serving the well-known HTTP index protocol.
type HTTPClient struct {
	source domain.SourceID
	http   *http.Client
	logger ports.Logger
	opts   HTTPOptions

	mu     sync.Mutex
	config *domain.RegistryConfig
}

// NewHTTPClient creates a client for source using httpc for every request.
func NewHTTPClient(source domain.SourceID, httpc *http.Client, logger ports.Logger, opts HTTPOptions) *HTTPClient {
	return &HTTPClient{source: source, http: httpc, logger: logger, opts: opts}
}

// GetRecords fetches the index file of name, conditionally when cacheKey is set.
func (c *HTTPClient) GetRecords(ctx context.Context, name domain.PackageName, cacheKey domain.CacheKey) (domain.IndexRecords, error) {
	if !cacheKey.IsZero() && c.opts.Offline {
		c.logger.Debug("network is not allowed, while cached record exists, using cache")
		return domain.IndexRecords{Status: domain.ResourceInCache}, nil
	}

	cfg, err := c.IndexConfig(ctx)
	if err != nil {
		return domain.IndexRecords{}, err
	}
	recordsURL, err := ExpandTemplate(cfg.Index, TemplateParams{Package: string(name)})
	if err != nil {
		return domain.IndexRecords{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordsURL, http.NoBody)
	if err != nil {
		return domain.IndexRecords{}, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", recordsURL)
	}
	switch cacheKey.Header {
	case headerETag:
		req.Header.Set(headerIfNoneMatch, cacheKey.Value)
	case headerLastModified:
		req.Header.Set(headerIfModifiedSince, cacheKey.Value)
	}

	resp, err := c.do(req)
	if err != nil {
		return domain.IndexRecords{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // Body is fully consumed

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if cacheKey.IsZero() {
			return domain.IndexRecords{}, zerr.With(zerr.Wrap(domain.ErrRegistryProtocol, "server said not modified (HTTP 304) when no local cache exists"), "url", recordsURL)
		}
		return domain.IndexRecords{Status: domain.ResourceInCache}, nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.IndexRecords{Status: domain.ResourceNotFound}, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return domain.IndexRecords{}, statusError(resp, recordsURL)
	}

	var records []domain.IndexRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return domain.IndexRecords{}, zerr.With(zerr.Wrap(err, "failed to deserialize index records"), "url", recordsURL)
	}

	return domain.IndexRecords{
		Status:   domain.ResourceDownloaded,
		Records:  records,
		CacheKey: cacheKeyOf(resp),
	}, nil
}

// Download writes the archive of id to dest.
func (c *HTTPClient) Download(ctx context.Context, id domain.PackageID, dest string) (domain.DownloadedArchive, error) {
	cfg, err := c.IndexConfig(ctx)
	if err != nil {
		return domain.DownloadedArchive{}, err
	}
	dlURL, err := ExpandTemplate(cfg.DL, ParamsFor(id))
	if err != nil {
		return domain.DownloadedArchive{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dlURL, http.NoBody)
	if err != nil {
		return domain.DownloadedArchive{}, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", dlURL)
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.DownloadedArchive{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // Body is fully consumed

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return domain.DownloadedArchive{}, zerr.With(zerr.Wrap(domain.ErrRegistryProtocol, "packages archive server is not allowed to say not modified (HTTP 304)"), "url", dlURL)
	case resp.StatusCode == http.StatusNotFound:
		return domain.DownloadedArchive{Status: domain.ResourceNotFound}, nil
	case resp.StatusCode >= http.StatusBadRequest:
		return domain.DownloadedArchive{}, statusError(resp, dlURL)
	}

	if err := writeFileAtomic(ctx, dest, resp.Body); err != nil {
		return domain.DownloadedArchive{}, err
	}
	return domain.DownloadedArchive{Status: domain.ResourceDownloaded, Path: dest}, nil
}

// SupportsPublish reports whether the registry config advertises an upload endpoint.
func (c *HTTPClient) SupportsPublish() bool {
	cfg, err := c.IndexConfig(context.Background())
	return err == nil && cfg.Upload != ""
}

// IndexConfig returns the registry config, loading it from the disk cache or the registry once.
func (c *HTTPClient) IndexConfig(ctx context.Context) (*domain.RegistryConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config != nil {
		return c.config, nil
	}

	cfg, err := c.cachedConfig()
	if err != nil {
		c.logger.Warn(fmt.Sprintf("failed to read cached registry config: %v", err))
	}
	if cfg == nil {
		cfg, err = c.fetchConfig(ctx)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to fetch registry config")
		}
		if err := c.saveConfig(cfg); err != nil {
			c.logger.Warn(fmt.Sprintf("failed to save registry config in cache: %v", err))
		}
	}

	c.config = cfg
	return cfg, nil
}

func (c *HTTPClient) configCachePath() string {
	return filepath.Join(c.opts.ConfigCacheDir, c.source.Ident()+".json")
}

func (c *HTTPClient) cachedConfig() (*domain.RegistryConfig, error) {
	if c.opts.ConfigCacheDir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.configCachePath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg domain.RegistryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *HTTPClient) saveConfig(cfg *domain.RegistryConfig) error {
	if c.opts.ConfigCacheDir == "" {
		return nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.opts.ConfigCacheDir, domain.DirPerm); err != nil {
		return err
	}
	return os.WriteFile(c.configCachePath(), data, domain.FilePerm)
}

func (c *HTTPClient) fetchConfig(ctx context.Context) (*domain.RegistryConfig, error) {
	configURL, err := url.JoinPath(c.source.URL(), IndexConfigPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidSourceID.Error()), "url", c.source.URL())
	}
	c.logger.Debug("fetching registry config: " + configURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", configURL)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Body is fully consumed

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, configURL)
	}

	var cfg domain.RegistryConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryProtocol.Error()), "url", configURL)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, zerr.With(err, "url", configURL)
	}
	return &cfg, nil
}

// do sends req, retrying failed connection attempts.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.opts.Offline {
		return nil, zerr.With(zerr.Wrap(domain.ErrOffline, ""), "url", req.URL.String())
	}

	var err error
	for attempt := 0; ; attempt++ {
		var resp *http.Response
		resp, err = c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		if attempt >= c.opts.Retries || !isConnectError(err) || req.Context().Err() != nil {
			break
		}
		c.logger.Debug(fmt.Sprintf("retrying request to %s: %v", req.URL, err))
	}
	return nil, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", req.URL.String())
}

func validateConfig(cfg *domain.RegistryConfig) error {
	if cfg.Version != 1 {
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedIndexVersion, ""), "version", cfg.Version)
	}
	if cfg.Index == "" || cfg.DL == "" {
		return zerr.Wrap(domain.ErrRegistryProtocol, "registry config must define `index` and `dl`")
	}
	return nil
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func statusError(resp *http.Response, u string) error {
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrNetwork, "unexpected status "+resp.Status), "url", u), "status", resp.StatusCode)
}

func cacheKeyOf(resp *http.Response) domain.CacheKey {
	if v := resp.Header.Get(headerETag); v != "" {
		return domain.CacheKey{Header: headerETag, Value: v}
	}
	if v := resp.Header.Get(headerLastModified); v != "" {
		return domain.CacheKey{Header: headerLastModified, Value: v}
	}
	return domain.CacheKey{}
}
