package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/core/domain"
)

func TestPackagePrefix(t *testing.T) {
	tests := map[string]string{
		"a":      "1",
		"ab":     "2",
		"abc":    "3/a",
		"abcd":   "ab/cd",
		"foobar": "fo/ob",
	}
	for name, want := range tests {
		assert.Equal(t, want, registry.PackagePrefix(name), name)
	}
}

func TestExpandTemplate(t *testing.T) {
	id := domain.NewPackageID(domain.MustPackageName("foobar"), domain.MustParseVersion("1.0.0"), domain.DefaultRegistrySourceID())

	got, err := registry.ExpandTemplate("https://example.com/{prefix}/{package}-{version}.json", registry.ParamsFor(id))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fo/ob/foobar-1.0.0.json", got)
}

func TestExpandTemplate_UnavailablePattern(t *testing.T) {
	_, err := registry.ExpandTemplate("https://example.com/{package}-{version}.json", registry.TemplateParams{Package: "foo"})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrTemplateURL.Error())
	assert.ErrorContains(t, err, "{version}")
}
