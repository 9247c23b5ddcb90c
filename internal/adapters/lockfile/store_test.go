package lockfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/lockfile"
	"go.trai.ch/scarb/internal/core/domain"
)

func sampleLock(t *testing.T) *domain.Lockfile {
	t.Helper()
	git, err := domain.ParseSourceID("git+https://github.com/example/dep1.git?branch=foo#0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, err)
	sum, err := domain.ParseChecksum("sha256:" + strings.Repeat("ab", 32))
	require.NoError(t, err)

	return domain.NewLockfile([]domain.LockedPackage{
		{Name: "hello", Version: domain.MustParseVersion("0.1.0"), Dependencies: []domain.PackageName{"foo", "dep1"}},
		{Name: "foo", Version: domain.MustParseVersion("1.2.0"), Source: domain.DefaultRegistrySourceID(), Checksum: sum},
		{Name: "dep1", Version: domain.MustParseVersion("0.3.0"), Source: git},
		{Name: "core", Version: domain.MustParseVersion("2.12.0"), Source: domain.StdSourceID()},
	})
}

func TestEncode_Format(t *testing.T) {
	data, err := lockfile.Encode(sampleLock(t))
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, lockfile.Header))
	assert.Contains(t, text, "version = 1")
	assert.Regexp(t, `source = ['"]std['"]`, text)
	assert.Less(t, strings.Index(text, "core"), strings.Index(text, "dep1"))
	assert.Less(t, strings.Index(text, "1.2.0"), strings.Index(text, "0.1.0"))
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockfileFileName)
	store := lockfile.NewStore()

	missing, err := store.Read(path)
	require.NoError(t, err)
	assert.Nil(t, missing)

	lock := sampleLock(t)
	changed, err := store.Write(path, lock)
	require.NoError(t, err)
	assert.True(t, changed)

	read, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, lock, read)

	hello := read.Find("hello")
	require.Len(t, hello, 1)
	assert.True(t, hello[0].Source.IsZero())
	assert.Equal(t, []domain.PackageName{"dep1", "foo"}, hello[0].Dependencies)
}

func TestStore_WriteOnlyWhenChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.LockfileFileName)
	store := lockfile.NewStore()

	changed, err := store.Write(path, sampleLock(t))
	require.NoError(t, err)
	require.True(t, changed)

	info, err := os.Stat(path)
	require.NoError(t, err)

	changed, err = store.Write(path, sampleLock(t))
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestDecode_Errors(t *testing.T) {
	_, err := lockfile.Decode([]byte("version = 2\n"))
	assert.ErrorContains(t, err, "unsupported lockfile version")

	_, err = lockfile.Decode([]byte("version = 1\n[[package]]\nname = \"foo\"\nversion = \"x\"\n"))
	assert.ErrorContains(t, err, domain.ErrInvalidVersion.Error())

	_, err = lockfile.Decode([]byte("version = 1\n[[package]]\nname = \"foo\"\nversion = \"1.0.0\"\nsource = \"svn+x\"\n"))
	assert.Error(t, err)
}
