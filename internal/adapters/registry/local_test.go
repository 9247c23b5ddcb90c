package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/core/domain"
)

func newLocalRegistry(t *testing.T) (*registry.LocalClient, domain.SourceID, string) {
	t.Helper()
	root := t.TempDir()
	source, err := domain.NewRegistrySourceID("file://" + filepath.ToSlash(root))
	require.NoError(t, err)
	client, err := registry.NewLocalClient(source)
	require.NoError(t, err)
	return client, source, root
}

func TestLocalClient_GetRecords(t *testing.T) {
	client, _, root := newLocalRegistry(t)
	records := []domain.IndexRecord{record("1.0.0", domain.Checksum{}), record("1.1.0", domain.Checksum{})}
	writeJSON(t, filepath.Join(root, "index", "fo", "ob", "foobar.json"), records)

	got, err := client.GetRecords(context.Background(), "foobar", domain.CacheKey{})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceDownloaded, got.Status)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "1.1.0", got.Records[1].Version.String())

	missing, err := client.GetRecords(context.Background(), "nope", domain.CacheKey{})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceNotFound, missing.Status)
}

func TestLocalClient_GetRecordsCorrupted(t *testing.T) {
	client, _, root := newLocalRegistry(t)
	path := filepath.Join(root, "index", "3", "b", "bar.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte("{"), domain.FilePerm))

	_, err := client.GetRecords(context.Background(), "bar", domain.CacheKey{})
	assert.ErrorContains(t, err, domain.ErrRegistryProtocol.Error())
}

func TestLocalClient_Download(t *testing.T) {
	client, source, root := newLocalRegistry(t)
	id := domain.NewPackageID("bar", domain.MustParseVersion("1.0.0"), source)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dl"), domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dl", "bar-1.0.0.tar.zst"), []byte("archive"), domain.FilePerm))

	dest := filepath.Join(t.TempDir(), "out", "bar.tar.zst")
	got, err := client.Download(context.Background(), id, dest)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceDownloaded, got.Status)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), ".bar.tar.zst.part"))

	missing, err := client.Download(context.Background(), domain.NewPackageID("bar", domain.MustParseVersion("2.0.0"), source), dest)
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceNotFound, missing.Status)
	assert.False(t, client.SupportsPublish())
}

func TestNewLocalClient_RequiresDirectory(t *testing.T) {
	source, err := domain.NewRegistrySourceID("file:///definitely/not/here")
	require.NoError(t, err)
	_, err = registry.NewLocalClient(source)
	assert.Error(t, err)
}
