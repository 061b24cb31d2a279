// Package artifacts persists provider-hosted generation results to
// durable storage so content URLs outlive the provider's retention
// window.
package artifacts

import (
	"context"
	"net/url"
	"strings"
)

// Store copies a remote artifact into durable storage and returns its
// new public URL.
type Store interface {
	// Persist downloads srcURL and stores a copy, returning the stored
	// object's public URL. Implementations return srcURL unchanged when
	// the artifact is already on a trusted host.
	Persist(ctx context.Context, srcURL string) (string, error)
}

// NoopStore returns every URL unchanged. Used when artifact persistence
// is disabled.
type NoopStore struct{}

func (NoopStore) Persist(_ context.Context, srcURL string) (string, error) {
	return srcURL, nil
}

// internalHost reports whether srcURL already points at one of our own
// hosts, in which case re-uploading would be a pointless copy.
func internalHost(srcURL string, hosts []string) bool {
	u, err := url.Parse(srcURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, h := range hosts {
		if strings.EqualFold(u.Host, h) || strings.HasSuffix(strings.ToLower(u.Host), "."+strings.ToLower(h)) {
			return true
		}
	}
	return false
}
