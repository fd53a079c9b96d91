package stacapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeBaseURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/v0", "https://example.com/v0"},
		{"https://example.com/v0/", "https://example.com/v0"},
		{"https://example.com/v0//", "https://example.com/v0"},
		{"  https://example.com/v0 ", "https://example.com/v0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeBaseURL(tt.input))
	}
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t, "https://example.com/v0/search", SearchURL("https://example.com/v0/"))
}

func TestCollectionURL(t *testing.T) {
	got := CollectionURL("https://example.com/v0", "sentinel-s2-l2a")
	assert.Equal(t, "https://example.com/v0/collections/sentinel-s2-l2a", got)
}

func TestItemURL(t *testing.T) {
	got := ItemURL("https://example.com/v0", "sentinel-s2-l2a", "S2A_34JCL_20190620_0")
	assert.Equal(t, "https://example.com/v0/collections/sentinel-s2-l2a/items/S2A_34JCL_20190620_0", got)
}

func TestBaseURLFromEnv(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("STAC_API_URL", "https://planetarycomputer.microsoft.com/api/stac/v1")
		assert.Equal(t, "https://planetarycomputer.microsoft.com/api/stac/v1", BaseURLFromEnv())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("STAC_API_URL", "")
		assert.Equal(t, DefaultBaseURL, BaseURLFromEnv())
	})
}

func TestIsValidID(t *testing.T) {
	valid := []string{"sentinel-s2-l2a", "S2A_34JCL_20190620_0", "a.b-c_d"}
	for _, id := range valid {
		assert.True(t, IsValidID(id), id)
	}

	invalid := []string{"", "a/b", "a\\b", "a?b", "a#b"}
	for _, id := range invalid {
		assert.False(t, IsValidID(id), id)
	}
}
