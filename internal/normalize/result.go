// Package normalize parses the wildly different provider response shapes
// into one canonical result: synchronous JSON envelopes, multi-result
// arrays, single-url payloads, polling payloads and SSE-style streams.
package normalize

// Status is the canonical task status extracted from a provider response.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is the canonical, provider-agnostic response. Fields are optional;
// Status is always set.
type Result struct {
	ContentURLs    []string
	VideoURL       string
	ExternalTaskID string
	PID            string
	FailureReason  string
	Status         Status
	Progress       int // 0-100
}

// AllURLs returns the artifact URLs in persistence order: the video URL
// when present, otherwise the content URLs.
func (r *Result) AllURLs() []string {
	if r.VideoURL != "" {
		return []string{r.VideoURL}
	}
	return r.ContentURLs
}

// Pending reports whether the provider has accepted the work but not yet
// delivered artifacts. Callers route pending results to the async path
// rather than finalizing.
func (r *Result) Pending() bool {
	return r.Status == StatusRunning
}
