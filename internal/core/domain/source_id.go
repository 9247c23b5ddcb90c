package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unique"

	"go.trai.ch/zerr"
)

const (
	// DefaultRegistryURL is the canonical url of the default package registry.
	DefaultRegistryURL = "https://scarbs.xyz/"

	// DefaultRegistryAlias is the short alias of the default registry accepted in manifests.
	DefaultRegistryAlias = "scarbs-xyz"

	stdPrettyURL = "std"
)

// SourceKind enumerates where packages can come from.
type SourceKind uint8

const (
	// SourceKindPath is a local directory.
	SourceKindPath SourceKind = iota + 1
	// SourceKindGit is a git repository at a reference.
	SourceKindGit
	// SourceKindRegistry is a package registry.
	SourceKindRegistry
	// SourceKindStd is the core library bundled with scarb.
	SourceKindStd
)

func (k SourceKind) String() string {
	switch k {
	case SourceKindPath:
		return "path"
	case SourceKindGit:
		return "git"
	case SourceKindRegistry:
		return "registry"
	case SourceKindStd:
		return "std"
	default:
		return "unknown"
	}
}

// GitReferenceKind enumerates the ways a git source pins its revision.
type GitReferenceKind uint8

const (
	// GitDefaultBranch follows the remote HEAD.
	GitDefaultBranch GitReferenceKind = iota
	// GitBranch follows a named branch.
	GitBranch
	// GitTag pins a tag.
	GitTag
	// GitRev pins a commit or an arbitrary ref.
	GitRev
)

// GitReference is a branch, tag, rev or the default branch of a repository.
type GitReference struct {
	Kind  GitReferenceKind
	Value string
}

// String renders the reference for display.
func (r GitReference) String() string {
	switch r.Kind {
	case GitBranch:
		return "branch=" + r.Value
	case GitTag:
		return "tag=" + r.Value
	case GitRev:
		return "rev=" + r.Value
	default:
		return "HEAD"
	}
}

type sourceData struct {
	kind    SourceKind
	url     string
	ref     GitReference
	precise string
}

// SourceID identifies a package source. Values are interned, so two SourceIDs
// with the same content compare equal with ==.
type SourceID struct {
	h unique.Handle[sourceData]
}

func intern(d sourceData) SourceID {
	return SourceID{h: unique.Make(d)}
}

// NewPathSourceID returns a path source for the directory dir.
func NewPathSourceID(dir string) (SourceID, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return SourceID{}, zerr.With(zerr.Wrap(err, ErrInvalidSourceID.Error()), "path", dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	s := u.String()
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return intern(sourceData{kind: SourceKindPath, url: s}), nil
}

// NewGitSourceID returns a git source for rawURL at ref.
// The scp-like form `user@host:path` is accepted and stored as an ssh url.
func NewGitSourceID(rawURL string, ref GitReference) (SourceID, error) {
	u, err := url.Parse(scpToSSH(rawURL))
	if err != nil || u.Scheme == "" {
		return SourceID{}, zerr.With(zerr.Wrap(ErrInvalidSourceID, ""), "url", rawURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return intern(sourceData{kind: SourceKindGit, url: u.String(), ref: ref}), nil
}

// NewRegistrySourceID returns a registry source; the default registry alias is accepted.
func NewRegistrySourceID(rawURL string) (SourceID, error) {
	if rawURL == DefaultRegistryAlias {
		rawURL = DefaultRegistryURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return SourceID{}, zerr.With(zerr.Wrap(ErrInvalidSourceID, ""), "url", rawURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return intern(sourceData{kind: SourceKindRegistry, url: u.String()}), nil
}

// DefaultRegistrySourceID returns the source of the default registry.
func DefaultRegistrySourceID() SourceID {
	return intern(sourceData{kind: SourceKindRegistry, url: DefaultRegistryURL})
}

// StdSourceID returns the source of the bundled core library.
func StdSourceID() SourceID {
	return intern(sourceData{kind: SourceKindStd, url: "scarb:/std"})
}

// ParseSourceID parses a pretty-url as written in lockfiles and metadata.
func ParseSourceID(pretty string) (SourceID, error) {
	if pretty == stdPrettyURL {
		return StdSourceID(), nil
	}
	kind, rest, ok := strings.Cut(pretty, "+")
	if !ok {
		return SourceID{}, zerr.With(zerr.Wrap(ErrInvalidSourceID, ""), "source", pretty)
	}

	switch kind {
	case "path":
		u, err := url.Parse(rest)
		if err != nil || u.Scheme != "file" {
			return SourceID{}, zerr.With(zerr.Wrap(ErrInvalidSourceID, ""), "source", pretty)
		}
		return intern(sourceData{kind: SourceKindPath, url: u.String()}), nil
	case "registry":
		return NewRegistrySourceID(rest)
	case "git":
		u, err := url.Parse(scpToSSH(rest))
		if err != nil || u.Scheme == "" {
			return SourceID{}, zerr.With(zerr.Wrap(ErrInvalidSourceID, ""), "source", pretty)
		}
		ref := GitReference{Kind: GitDefaultBranch}
		q := u.Query()
		switch {
		case q.Has("branch"):
			ref = GitReference{Kind: GitBranch, Value: q.Get("branch")}
		case q.Has("tag"):
			ref = GitReference{Kind: GitTag, Value: q.Get("tag")}
		case q.Has("rev"):
			ref = GitReference{Kind: GitRev, Value: q.Get("rev")}
		}
		precise := u.Fragment
		u.RawQuery = ""
		u.Fragment = ""
		return intern(sourceData{kind: SourceKindGit, url: u.String(), ref: ref, precise: precise}), nil
	default:
		return SourceID{}, zerr.With(zerr.Wrap(ErrUnsupportedSourceKind, ""), "source", pretty)
	}
}

// MustParseSourceID is ParseSourceID for constants and tests.
func MustParseSourceID(pretty string) SourceID {
	s, err := ParseSourceID(pretty)
	if err != nil {
		panic(err)
	}
	return s
}

// IsZero reports whether s is the zero value.
func (s SourceID) IsZero() bool {
	return s == SourceID{}
}

func (s SourceID) data() sourceData {
	if s.IsZero() {
		return sourceData{}
	}
	return s.h.Value()
}

// Kind returns the source kind.
func (s SourceID) Kind() SourceKind { return s.data().kind }

// URL returns the base url of the source, without reference or precise revision.
func (s SourceID) URL() string { return s.data().url }

// GitReference returns the requested git reference of a git source.
func (s SourceID) GitReference() GitReference { return s.data().ref }

// Precise returns the locked commit of a git source, if known.
func (s SourceID) Precise() string { return s.data().precise }

// IsPath reports whether s is a path source.
func (s SourceID) IsPath() bool { return s.Kind() == SourceKindPath }

// IsGit reports whether s is a git source.
func (s SourceID) IsGit() bool { return s.Kind() == SourceKindGit }

// IsRegistry reports whether s is a registry source.
func (s SourceID) IsRegistry() bool { return s.Kind() == SourceKindRegistry }

// IsStd reports whether s is the core library source.
func (s SourceID) IsStd() bool { return s.Kind() == SourceKindStd }

// IsDefaultRegistry reports whether s is the default registry.
func (s SourceID) IsDefaultRegistry() bool {
	return s.IsRegistry() && s.URL() == DefaultRegistryURL
}

// WithPrecise returns a git source locked to commit.
func (s SourceID) WithPrecise(commit string) SourceID {
	d := s.data()
	d.precise = commit
	return intern(d)
}

// WithoutPrecise drops the locked commit.
func (s SourceID) WithoutPrecise() SourceID {
	if s.Precise() == "" {
		return s
	}
	return s.WithPrecise("")
}

// Path returns the local directory of a path source.
func (s SourceID) Path() string {
	if !s.IsPath() {
		return ""
	}
	u, err := url.Parse(s.URL())
	if err != nil {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// PrettyURL renders the canonical textual form used by lockfiles and metadata.
func (s SourceID) PrettyURL() string {
	d := s.data()
	switch d.kind {
	case SourceKindStd:
		return stdPrettyURL
	case SourceKindPath:
		return "path+" + d.url
	case SourceKindRegistry:
		return "registry+" + d.url
	case SourceKindGit:
		var b strings.Builder
		b.WriteString("git+")
		b.WriteString(d.url)
		switch d.ref.Kind {
		case GitBranch:
			b.WriteString("?branch=" + url.QueryEscape(d.ref.Value))
		case GitTag:
			b.WriteString("?tag=" + url.QueryEscape(d.ref.Value))
		case GitRev:
			b.WriteString("?rev=" + url.QueryEscape(d.ref.Value))
		case GitDefaultBranch:
		}
		if d.precise != "" {
			b.WriteString("#" + d.precise)
		}
		return b.String()
	default:
		return ""
	}
}

// String returns a human readable description of the source.
func (s SourceID) String() string {
	switch s.Kind() {
	case SourceKindPath:
		return s.Path()
	case SourceKindStd:
		return stdPrettyURL
	default:
		return s.PrettyURL()
	}
}

// CanonicalURL returns the url used to compare sources for equivalence.
// Trailing slashes and ".git" suffixes are ignored and hosts are lowercased.
func (s SourceID) CanonicalURL() string {
	return CanonicalizeURL(s.URL())
}

// CanonicalizeURL normalizes a url for source equivalence checks.
func CanonicalizeURL(raw string) string {
	if raw == DefaultRegistryAlias {
		raw = DefaultRegistryURL
	}
	u, err := url.Parse(scpToSSH(raw))
	if err != nil {
		return raw
	}
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), ".git")
	return u.String()
}

// scpToSSH rewrites `[user@]host:path` to `ssh://[user@]host/path`.
// Anything with a scheme, or a colon after the first slash, is returned as is.
// Single letter hosts are left alone so Windows drive paths are not mistaken for hosts.
func scpToSSH(raw string) string {
	colon := strings.Index(raw, ":")
	if colon < 0 || strings.Contains(raw, "://") {
		return raw
	}
	if slash := strings.Index(raw, "/"); slash >= 0 && slash < colon {
		return raw
	}
	userHost, p := raw[:colon], raw[colon+1:]
	host := userHost
	if _, h, ok := strings.Cut(userHost, "@"); ok {
		host = h
	}
	if len(host) < 2 || p == "" {
		return raw
	}
	return "ssh://" + userHost + "/" + strings.TrimPrefix(p, "/")
}

// Ident returns a short, filesystem-safe identifier for cache directory names.
func (s SourceID) Ident() string {
	d := s.data()
	name := d.kind.String()
	if u, err := url.Parse(d.url); err == nil {
		switch {
		case d.kind == SourceKindGit || d.kind == SourceKindPath:
			if base := path.Base(strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), ".git")); base != "." && base != "/" && base != "" {
				name = base
			}
		case u.Host != "":
			name = u.Host
		}
	}
	return name + "-" + ShortHash(d.kind.String(), s.CanonicalURL())
}

// Compare orders sources by their pretty-url.
func (s SourceID) Compare(o SourceID) int {
	return strings.Compare(s.PrettyURL(), o.PrettyURL())
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceID) MarshalText() ([]byte, error) {
	return []byte(s.PrettyURL()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceID) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceID(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
