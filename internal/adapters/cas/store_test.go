package cas_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/cas"
	"go.trai.ch/scarb/internal/core/domain"
)

func sampleArtifact() *domain.IncrementalArtifact {
	return &domain.IncrementalArtifact{
		UnitID: "hello 0.1.0 (path+file:///hello/)-0000000000001",
		Digest: "abc",
		Artifacts: []domain.CompiledArtifact{
			{Name: "hello.sierra.json", Content: []byte(`{"sierra_program":[]}`)},
		},
		Warnings: []domain.Diagnostic{{Severity: domain.SeverityWarning, Message: "unused variable"}},
	}
}

func TestStore_PutAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incremental", "hello.bin")
	store, err := cas.NewStore()
	require.NoError(t, err)

	require.NoError(t, store.Put(path, sampleArtifact()))

	got, err := store.Get(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleArtifact(), got)
}

func TestStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.bin")
	first, err := cas.NewStore()
	require.NoError(t, err)
	require.NoError(t, first.Put(path, sampleArtifact()))

	second, err := cas.NewStore()
	require.NoError(t, err)
	got, err := second.Get(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Digest)
	assert.Equal(t, "unused variable", got.Warnings[0].Message)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_GetMissing(t *testing.T) {
	store, err := cas.NewStore()
	require.NoError(t, err)

	got, err := store.Get(filepath.Join(t.TempDir(), "missing.bin"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_GetCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00, 0x13}, domain.FilePerm))
	store, err := cas.NewStore()
	require.NoError(t, err)

	_, err = store.Get(path)
	assert.ErrorContains(t, err, domain.ErrStoreReadFailed.Error())
}

func TestFingerprints(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".fingerprint", "hello-abc", "lib-hello")
	store := cas.NewFingerprints()

	fresh, err := store.IsFresh(path, "1234")
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, store.Write(path, "1234"))
	fresh, err = store.IsFresh(path, "1234")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.IsFresh(path, "5678")
	require.NoError(t, err)
	assert.False(t, fresh)
}
