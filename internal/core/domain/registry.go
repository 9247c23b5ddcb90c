package domain

import "strings"

// IndexDependency is a dependency entry of a registry index record.
type IndexDependency struct {
	Name PackageName `json:"name"`
	Req  string      `json:"req"`
	// Source is a pretty-url; empty means the registry itself.
	Source string `json:"source,omitempty"`
}

// IndexRecord is one published version of a package.
type IndexRecord struct {
	Version  Version           `json:"v"`
	Deps     []IndexDependency `json:"deps"`
	Checksum Checksum          `json:"cksum"`
	Yanked   bool              `json:"yanked,omitempty"`
	Audited  bool              `json:"audited,omitempty"`
	NoCore   bool              `json:"no_core,omitempty"`
}

// CacheKey is an HTTP validator remembered with a cached resource.
type CacheKey struct {
	Header string
	Value  string
}

// String renders "<Header>: <value>".
func (k CacheKey) String() string {
	if k.Value == "" {
		return ""
	}
	return k.Header + ": " + k.Value
}

// ParseCacheKey parses the output of String.
func ParseCacheKey(s string) (CacheKey, bool) {
	header, value, ok := strings.Cut(s, ": ")
	if !ok || value == "" {
		return CacheKey{}, false
	}
	return CacheKey{Header: header, Value: value}, true
}

// IsZero reports whether no validator is known.
func (k CacheKey) IsZero() bool {
	return k.Value == ""
}

// ResourceStatus is the outcome of a conditional registry request.
type ResourceStatus uint8

const (
	// ResourceNotFound means the registry does not know the resource.
	ResourceNotFound ResourceStatus = iota
	// ResourceInCache means the cached copy is still valid.
	ResourceInCache
	// ResourceDownloaded means fresh content was fetched.
	ResourceDownloaded
)

// IndexRecords is the result of querying a registry for one package.
type IndexRecords struct {
	Status   ResourceStatus
	Records  []IndexRecord
	CacheKey CacheKey
}

// DownloadedArchive is the result of downloading a package archive.
type DownloadedArchive struct {
	Status ResourceStatus
	Path   string
}

// RegistryConfig is served by registries at api/v1/index/config.json.
type RegistryConfig struct {
	Version int    `json:"version"`
	API     string `json:"api,omitempty"`
	DL      string `json:"dl"`
	Index   string `json:"index"`
	Upload  string `json:"upload,omitempty"`
}
