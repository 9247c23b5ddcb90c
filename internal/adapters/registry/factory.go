package registry

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/git-lfs/go-netrc/netrc"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// EnvNetrc overrides the location of the netrc file.
const EnvNetrc = "NETRC"

// Factory builds registry clients for one invocation's configuration.
type Factory struct {
	logger ports.Logger

	netrcOnce sync.Once
	netrc     *netrc.Netrc
}

// NewFactory creates a Factory.
func NewFactory(logger ports.Logger) *Factory {
	return &Factory{logger: logger}
}

// Client returns the client serving source: file:// urls are read from disk,
// everything else speaks the HTTP index protocol.
func (f *Factory) Client(source domain.SourceID, cfg *domain.Config) (ports.RegistryClient, error) {
	u, err := url.Parse(source.URL())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidSourceID.Error()), "url", source.URL())
	}

	switch u.Scheme {
	case "file":
		return NewLocalClient(source)
	case "http", "https":
		httpc := &http.Client{
			Timeout: cfg.NetworkTimeout,
			Transport: &authTransport{
				base:      http.DefaultTransport,
				netrc:     f.loadNetrc(),
				userAgent: "scarb/" + cfg.ScarbVersion,
			},
		}
		return NewHTTPClient(source, httpc, f.logger, HTTPOptions{
			ConfigCacheDir: filepath.Join(cfg.RegistryCacheDir(), "configs", "http"),
			Offline:        cfg.Offline,
			Retries:        cfg.NetworkRetries,
		}), nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedSourceKind, ""), "url", source.URL())
	}
}

// Cache returns a cached client for source rooted in the registry cache directory.
func (f *Factory) Cache(source domain.SourceID, cfg *domain.Config) (*Cache, error) {
	client, err := f.Client(source, cfg)
	if err != nil {
		return nil, err
	}
	return NewCache(client, source, cfg.RegistryCacheDir(), f.logger), nil
}

func (f *Factory) loadNetrc() *netrc.Netrc {
	f.netrcOnce.Do(func() {
		f.netrc = &netrc.Netrc{}
		path := os.Getenv(EnvNetrc)
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return
			}
			path = filepath.Join(home, ".netrc")
		}
		n, err := netrc.ParseFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				f.logger.Warn("failed to parse netrc file " + path + ": " + err.Error())
			}
			return
		}
		if n != nil {
			f.netrc = n
		}
	})
	return f.netrc
}

// authTransport adds netrc credentials matching the request host.
type authTransport struct {
	base      http.RoundTripper
	netrc     *netrc.Netrc
	userAgent string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.netrc != nil {
		if m := t.netrc.FindMachine(req.URL.Hostname(), ""); m != nil && m.Login != "" {
			req.SetBasicAuth(m.Login, m.Password)
		}
	}
	return t.base.RoundTrip(req)
}
