package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
)

func TestSourceID_PrettyURLRoundTrip(t *testing.T) {
	pathSrc, err := domain.NewPathSourceID(t.TempDir())
	require.NoError(t, err)

	branch, err := domain.NewGitSourceID("https://github.com/example/dep1.git", domain.GitReference{Kind: domain.GitBranch, Value: "foo"})
	require.NoError(t, err)
	tag, err := domain.NewGitSourceID("https://github.com/example/dep1", domain.GitReference{Kind: domain.GitTag, Value: "v1.0.0"})
	require.NoError(t, err)
	rev, err := domain.NewGitSourceID("https://github.com/example/dep1", domain.GitReference{Kind: domain.GitRev, Value: "refs/pull/1/head"})
	require.NoError(t, err)
	head, err := domain.NewGitSourceID("https://github.com/example/dep1", domain.GitReference{Kind: domain.GitDefaultBranch})
	require.NoError(t, err)
	registry, err := domain.NewRegistrySourceID("https://registry.example.com")
	require.NoError(t, err)

	sources := []domain.SourceID{
		pathSrc,
		branch,
		branch.WithPrecise("0123456789abcdef0123456789abcdef01234567"),
		tag,
		rev,
		head,
		registry,
		domain.DefaultRegistrySourceID(),
		domain.StdSourceID(),
	}

	for _, s := range sources {
		t.Run(s.PrettyURL(), func(t *testing.T) {
			parsed, err := domain.ParseSourceID(s.PrettyURL())
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
			assert.Equal(t, s.PrettyURL(), parsed.PrettyURL())
		})
	}
}

func TestSourceID_Interning(t *testing.T) {
	a, err := domain.NewRegistrySourceID("scarbs-xyz")
	require.NoError(t, err)
	b := domain.DefaultRegistrySourceID()

	assert.True(t, a == b)
	assert.True(t, a.IsDefaultRegistry())
	assert.Equal(t, "registry+https://scarbs.xyz/", a.PrettyURL())
}

func TestSourceID_PathAccessors(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	s, err := domain.NewPathSourceID(dir)
	require.NoError(t, err)

	assert.True(t, s.IsPath())
	assert.Equal(t, resolved, s.Path())
	assert.Contains(t, s.PrettyURL(), "path+file://")
}

func TestSourceID_GitPrettyURL(t *testing.T) {
	s, err := domain.NewGitSourceID("https://github.com/example/dep1.git", domain.GitReference{Kind: domain.GitBranch, Value: "foo"})
	require.NoError(t, err)

	locked := s.WithPrecise("abc123")
	assert.Equal(t, "git+https://github.com/example/dep1.git?branch=foo#abc123", locked.PrettyURL())
	assert.Equal(t, s, locked.WithoutPrecise())
	assert.Equal(t, s.CanonicalURL(), locked.CanonicalURL())
}

func TestNewGitSourceID_ScpLikeURL(t *testing.T) {
	ssh, err := domain.NewGitSourceID("ssh://git@github.com/example/dep1.git", domain.GitReference{})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"with user", "git@github.com:example/dep1.git", "ssh://git@github.com/example/dep1.git"},
		{"without user", "github.com:example/dep1.git", "ssh://github.com/example/dep1.git"},
		{"absolute path", "git@github.com:/srv/dep1.git", "ssh://git@github.com/srv/dep1.git"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := domain.NewGitSourceID(tt.raw, domain.GitReference{Kind: domain.GitTag, Value: "v1.0.0"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.URL())

			parsed, err := domain.ParseSourceID(s.PrettyURL())
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
		})
	}

	scp, err := domain.NewGitSourceID("git@GitHub.com:example/dep1", domain.GitReference{})
	require.NoError(t, err)
	assert.Equal(t, ssh.CanonicalURL(), scp.CanonicalURL())
	assert.Regexp(t, `^dep1-[0-9a-z]{13}$`, scp.Ident())
}

func TestNewGitSourceID_Invalid(t *testing.T) {
	for _, bad := range []string{"", "example/dep1", ":example"} {
		_, err := domain.NewGitSourceID(bad, domain.GitReference{})
		require.Error(t, err, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidSourceID)
	}
}

func TestSourceID_Ident(t *testing.T) {
	s, err := domain.NewGitSourceID("https://github.com/example/dep1.git", domain.GitReference{})
	require.NoError(t, err)

	ident := s.Ident()
	assert.Regexp(t, `^dep1-[0-9a-z]{13}$`, ident)
	assert.Regexp(t, `^scarbs\.xyz-[0-9a-z]{13}$`, domain.DefaultRegistrySourceID().Ident())
}

func TestParseSourceID_Invalid(t *testing.T) {
	for _, bad := range []string{"", "file:///tmp", "svn+https://x", "path+https://x"} {
		_, err := domain.ParseSourceID(bad)
		assert.Error(t, err, bad)
	}
}

func TestPackageID_SerializedRoundTrip(t *testing.T) {
	id := domain.NewPackageID(domain.MustPackageName("foo"), domain.MustParseVersion("1.2.3"), domain.DefaultRegistrySourceID())
	assert.Equal(t, "foo 1.2.3 (registry+https://scarbs.xyz/)", id.SerializedString())

	parsed, err := domain.ParsePackageID(id.SerializedString())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestComponentID_Discriminator(t *testing.T) {
	id := domain.NewPackageID(domain.MustPackageName("hello"), domain.MustParseVersion("0.1.0"), domain.DefaultRegistrySourceID())
	lib := domain.ComponentID{Package: id, Kind: domain.TargetKindLib}
	test := domain.ComponentID{Package: id, Kind: domain.TargetKindTest}

	assert.Len(t, lib.Discriminator(), domain.ShortHashLen)
	assert.NotEqual(t, lib.Discriminator(), test.Discriminator())
	assert.Equal(t, lib.Discriminator(), domain.ComponentID{Package: id, Kind: domain.TargetKindLib}.Discriminator())
}
