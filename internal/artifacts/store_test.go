package artifacts

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternalHost(t *testing.T) {
	hosts := []string{"cdn.mediagw.io", "assets.example.com"}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.mediagw.io/generations/a.png", true},
		{"https://eu.cdn.mediagw.io/a.png", true},
		{"https://CDN.MEDIAGW.IO/a.png", true},
		{"https://provider.example.net/tmp/a.png", false},
		{"https://notcdn.mediagw.io.evil.com/a.png", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, internalHost(tt.url, hosts), tt.url)
	}
}

func TestNoopStorePassesThrough(t *testing.T) {
	got, err := NoopStore{}.Persist(context.Background(), "https://provider.example.net/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example.net/a.png", got)
}

func TestDisabledS3StorePassesThrough(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{}, zerolog.Nop())
	require.NoError(t, err)

	got, err := store.Persist(context.Background(), "https://provider.example.net/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example.net/a.png", got)
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := objectKey("https://provider.example.net/tmp/img.png?sig=abc")
	assert.True(t, strings.HasPrefix(key, "generations/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
}
