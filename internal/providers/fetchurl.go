package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// FetchSpec describes the HTTP call needed to poll an async task's status.
type FetchSpec struct {
	URL    string
	Method string
	Body   []byte
}

// DeriveFetchSpec rewrites the original submission URL into the provider's
// status endpoint for the given external task id. The rules are
// pattern-based per known provider URL conventions:
//
//   - submission paths containing /draw/ or /video/ use a unified
//     /draw/result endpoint, polled via POST with {"id": taskID}
//   - a /submit suffix is replaced with /task/{id}/fetch, polled via GET
//
// URLs matching neither convention cannot be polled.
func DeriveFetchSpec(submitURL, taskID string) (FetchSpec, error) {
	if strings.Contains(submitURL, "/draw/") || strings.Contains(submitURL, "/video/") {
		idx := strings.Index(submitURL, "/draw/")
		if idx < 0 {
			idx = strings.Index(submitURL, "/video/")
		}
		body, _ := json.Marshal(map[string]string{"id": taskID})
		return FetchSpec{
			URL:    submitURL[:idx] + "/draw/result",
			Method: http.MethodPost,
			Body:   body,
		}, nil
	}

	if idx := strings.LastIndex(submitURL, "/submit"); idx >= 0 {
		return FetchSpec{
			URL:    submitURL[:idx] + "/task/" + taskID + "/fetch",
			Method: http.MethodGet,
		}, nil
	}

	return FetchSpec{}, fmt.Errorf("no fetch endpoint rule matches submission url %s", submitURL)
}
