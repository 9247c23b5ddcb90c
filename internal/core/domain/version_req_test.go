package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
)

func TestParseVersion(t *testing.T) {
	v, err := domain.ParseVersion("1.2.3-alpha.1+build.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major)
	assert.Equal(t, uint64(2), v.Minor)
	assert.Equal(t, uint64(3), v.Patch)
	assert.Equal(t, "alpha.1", v.Pre)
	assert.Equal(t, "build.5", v.Build)
	assert.Equal(t, "1.2.3-alpha.1+build.5", v.String())

	for _, bad := range []string{"", "1", "1.2", "v1.2.3", "1.2.3.4", "01.2.3", "a.b.c"} {
		_, err := domain.ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestVersion_Compare(t *testing.T) {
	ordered := []string{"0.1.0", "1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-beta", "1.0.0", "1.0.1", "1.10.0", "2.0.0"}
	for i := 0; i+1 < len(ordered); i++ {
		a := domain.MustParseVersion(ordered[i])
		b := domain.MustParseVersion(ordered[i+1])
		assert.True(t, a.Less(b), "%s < %s", a, b)
		assert.False(t, b.Less(a), "%s < %s", b, a)
	}
	assert.Equal(t, 0, domain.MustParseVersion("1.0.0+a").Compare(domain.MustParseVersion("1.0.0+b")))
}

func TestVersionReq_Matches(t *testing.T) {
	tests := []struct {
		req     string
		matches []string
		rejects []string
	}{
		{req: "1.2.3", matches: []string{"1.2.3", "1.9.0"}, rejects: []string{"1.2.2", "2.0.0", "2.0.0-alpha"}},
		{req: "^0.2.3", matches: []string{"0.2.3", "0.2.9"}, rejects: []string{"0.3.0", "0.2.2"}},
		{req: "^0.0.3", matches: []string{"0.0.3"}, rejects: []string{"0.0.4"}},
		{req: "~1.2", matches: []string{"1.2.0", "1.2.7"}, rejects: []string{"1.3.0"}},
		{req: "=1.2.3", matches: []string{"1.2.3"}, rejects: []string{"1.2.4"}},
		{req: "=1.2", matches: []string{"1.2.0", "1.2.9"}, rejects: []string{"1.3.0"}},
		{req: ">=1.0, <2", matches: []string{"1.0.0", "1.99.0"}, rejects: []string{"2.0.0", "0.9.0"}},
		{req: ">1.2", matches: []string{"1.3.0"}, rejects: []string{"1.2.9"}},
		{req: "<=1.2", matches: []string{"1.2.9"}, rejects: []string{"1.3.0"}},
		{req: "1.*", matches: []string{"1.0.0", "1.5.2"}, rejects: []string{"2.0.0", "0.1.0"}},
		{req: "*", matches: []string{"0.0.1", "99.0.0"}, rejects: []string{"1.0.0-rc.1"}},
		{req: "^1.0.0-rc.1", matches: []string{"1.0.0-rc.1", "1.0.0-rc.2", "1.0.0", "1.2.0"}, rejects: []string{"1.1.0-alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			req, err := domain.ParseVersionReq(tt.req)
			require.NoError(t, err)
			for _, v := range tt.matches {
				assert.True(t, req.Matches(domain.MustParseVersion(v)), "%s should match %s", tt.req, v)
			}
			for _, v := range tt.rejects {
				assert.False(t, req.Matches(domain.MustParseVersion(v)), "%s should reject %s", tt.req, v)
			}
		})
	}
}

func TestParseVersionReq_Invalid(t *testing.T) {
	for _, bad := range []string{"", "^", ">=*", "1.*.3", "*.1", "1.2.3.4", "abc", "1.2-alpha"} {
		_, err := domain.ParseVersionReq(bad)
		assert.ErrorContains(t, err, domain.ErrInvalidVersionReq.Error(), bad)
	}
}

func TestRanges_SetAlgebra(t *testing.T) {
	v := domain.MustParseVersion
	r1 := domain.BetweenRanges(v("1.0.0"), v("2.0.0"))
	r2 := domain.BetweenRanges(v("1.5.0"), v("3.0.0"))

	inter := r1.Intersection(r2)
	assert.True(t, inter.Equal(domain.BetweenRanges(v("1.5.0"), v("2.0.0"))))

	union := r1.Union(r2)
	assert.True(t, union.Equal(domain.BetweenRanges(v("1.0.0"), v("3.0.0"))))

	comp := r1.Complement()
	assert.False(t, comp.Contains(v("1.0.0")))
	assert.True(t, comp.Contains(v("2.0.0")))
	assert.True(t, comp.Contains(v("0.9.0")))
	assert.True(t, comp.Complement().Equal(r1))

	assert.True(t, domain.SingletonRanges(v("1.2.0")).IsSubsetOf(r1))
	assert.True(t, domain.SingletonRanges(v("2.0.0")).IsDisjoint(r1))
	assert.True(t, domain.EmptyRanges().Complement().IsFull())
	assert.True(t, domain.FullRanges().Complement().IsEmpty())

	single, ok := domain.SingletonRanges(v("1.2.0")).SingleVersion()
	require.True(t, ok)
	assert.Equal(t, "1.2.0", single.String())
}

func TestRanges_AdjacentSegmentsMerge(t *testing.T) {
	v := domain.MustParseVersion
	low := domain.LowerThanRanges(v("1.0.0"))
	high := domain.StrictlyHigherThanRanges(v("1.0.0"))
	assert.True(t, low.Union(high).IsFull())
	assert.True(t, low.Intersection(high).IsEmpty())
}
