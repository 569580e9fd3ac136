package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateVersionedCacheKey(t *testing.T) {
	a := GenerateVersionedCacheKey("recommendation", "abc", "boston next week", "2025-10-09")
	b := GenerateVersionedCacheKey("recommendation", "abc", "boston next week", "2025-10-09")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "recommendation:"))
	assert.True(t, strings.HasSuffix(a, ":tv1.0_pv1.0_kabc"))

	// A different day or corpus must not reuse the entry.
	assert.NotEqual(t, a, GenerateVersionedCacheKey("recommendation", "abc", "boston next week", "2025-10-10"))
	assert.NotEqual(t, a, GenerateVersionedCacheKey("recommendation", "def", "boston next week", "2025-10-09"))

	// Part boundaries matter.
	assert.NotEqual(t,
		GenerateVersionedCacheKey("r", "k", "ab", "c"),
		GenerateVersionedCacheKey("r", "k", "a", "bc"))
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
