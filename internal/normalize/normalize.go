package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Mode declares how a provider delivers its response body.
type Mode string

const (
	ModeSyncJSON Mode = "sync-json"
	ModeStream   Mode = "stream"
	// ModeAuto detects streaming from the body itself.
	ModeAuto Mode = ""
)

// streamSentinel marks SSE-style bodies when the mode is unspecified.
const streamSentinel = "data:"

// Options steer normalization for one response.
type Options struct {
	Mode Mode
	// Async marks a fire-and-forget submission: only the external task id
	// is extracted, no content URL is required.
	Async bool
	// Video switches multi-result handling to single-video semantics.
	Video bool
}

// shapeMatcher inspects a parsed JSON object and extracts artifacts from
// one known response shape, or returns nil. Matchers run in priority order.
type shapeMatcher func(root map[string]any, video bool) *Result

var shapeMatchers = []shapeMatcher{
	matchResultsArray,
	matchImagesArray,
	matchSingleURL,
}

// Normalize parses a raw provider response body into a canonical Result.
// It returns a *ProviderError for explicit provider error envelopes, a
// *ParseError when no shape matches, and a Result with StatusRunning when
// the work is accepted but not finished (async handle or mid-stream end).
func Normalize(body string, opts Options) (*Result, error) {
	trimmed := strings.TrimSpace(body)

	if opts.Mode == ModeStream || (opts.Mode == ModeAuto && strings.HasPrefix(trimmed, streamSentinel)) {
		return foldStream(trimmed, opts)
	}

	var root map[string]any
	if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	if opts.Async {
		if id := extractTaskID(root); id != "" {
			return &Result{Status: StatusRunning, ExternalTaskID: id}, nil
		}
		return nil, &ParseError{Message: "async submission returned no task id"}
	}

	if err := checkErrorEnvelope(root); err != nil {
		return nil, err
	}

	for _, match := range shapeMatchers {
		if res := match(root, opts.Video); res != nil {
			res.Status = StatusSucceeded
			res.PID = extractPID(root)
			return res, nil
		}
	}

	// Polling payloads legitimately answer without a URL while the
	// provider is still working.
	switch statusOf(root) {
	case "running", "pending", "queued", "processing", "in_progress", "submitted":
		return &Result{
			Status:         StatusRunning,
			ExternalTaskID: extractTaskID(root),
			PID:            extractPID(root),
			Progress:       progressOf(root),
		}, nil
	}

	return nil, &ParseError{Message: "no content url in response"}
}

// checkErrorEnvelope detects explicit provider error envelopes: a numeric
// code outside {0, 200}, a top-level error field, or an error/failed
// status.
func checkErrorEnvelope(root map[string]any) error {
	if code, ok := numericField(root, "code"); ok && code != 0 && code != 200 {
		return &ProviderError{Message: friendlyMessage(bestMessage(root))}
	}
	// Success payloads commonly carry "error": null; only a populated
	// value marks a failure.
	if v, ok := root["error"]; ok && v != nil {
		return &ProviderError{Message: friendlyMessage(bestMessage(root))}
	}
	switch statusOf(root) {
	case "error", "failed":
		return &ProviderError{Message: friendlyMessage(bestMessage(root))}
	}
	return nil
}

// bestMessage probes the message fields providers actually use, in order.
func bestMessage(root map[string]any) string {
	for _, key := range []string{"msg", "message", "error", "failure_reason"} {
		switch v := root[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && s != "" {
				return s
			}
		}
	}
	return "provider returned an error"
}

// friendlyMessage rewrites raw credential complaints into something an end
// user can act on.
func friendlyMessage(msg string) string {
	lower := strings.ToLower(msg)
	for _, hint := range []string{"apikey", "api key", "unauthorized", "forbidden"} {
		if strings.Contains(lower, hint) {
			return "the provider rejected the configured credential, please contact the operator"
		}
	}
	return msg
}

func matchResultsArray(root map[string]any, video bool) *Result {
	items := arrayField(root, "results")
	if items == nil {
		if data, ok := root["data"].(map[string]any); ok {
			items = arrayField(data, "results")
		}
	}
	if len(items) == 0 {
		return nil
	}

	if video {
		// Video results reuse the array shape but only the first entry
		// counts.
		if obj, ok := items[0].(map[string]any); ok {
			for _, key := range []string{"url", "video_url"} {
				if u, ok := obj[key].(string); ok && u != "" {
					return &Result{VideoURL: u}
				}
			}
		}
		return nil
	}

	var urls []string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := obj["url"].(string); ok && u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	return &Result{ContentURLs: urls}
}

func matchImagesArray(root map[string]any, video bool) *Result {
	items := arrayField(root, "images")
	if len(items) == 0 {
		return nil
	}
	var urls []string
	for _, item := range items {
		if u, ok := item.(string); ok && u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	if video {
		return &Result{VideoURL: urls[0]}
	}
	return &Result{ContentURLs: urls}
}

func matchSingleURL(root map[string]any, video bool) *Result {
	probe := func(obj map[string]any) *Result {
		if u, ok := obj["video_url"].(string); ok && u != "" {
			return &Result{VideoURL: u}
		}
		for _, key := range []string{"url", "image"} {
			if u, ok := obj[key].(string); ok && u != "" {
				if video {
					return &Result{VideoURL: u}
				}
				return &Result{ContentURLs: []string{u}}
			}
		}
		return nil
	}

	if res := probe(root); res != nil {
		return res
	}
	if data, ok := root["data"].(map[string]any); ok {
		return probe(data)
	}
	return nil
}

// extractTaskID finds an outstanding task identifier for async
// submissions: id or task_id at top level or nested under data.
func extractTaskID(root map[string]any) string {
	for _, key := range []string{"id", "task_id"} {
		if id := scalarString(root[key]); id != "" {
			return id
		}
	}
	if data, ok := root["data"].(map[string]any); ok {
		for _, key := range []string{"id", "task_id"} {
			if id := scalarString(data[key]); id != "" {
				return id
			}
		}
	}
	return ""
}

func extractPID(root map[string]any) string {
	if id := scalarString(root["pid"]); id != "" {
		return id
	}
	if data, ok := root["data"].(map[string]any); ok {
		return scalarString(data["pid"])
	}
	return ""
}

func statusOf(root map[string]any) string {
	if s, ok := root["status"].(string); ok {
		return strings.ToLower(s)
	}
	if data, ok := root["data"].(map[string]any); ok {
		if s, ok := data["status"].(string); ok {
			return strings.ToLower(s)
		}
	}
	return ""
}

func progressOf(root map[string]any) int {
	if n, ok := numericField(root, "progress"); ok {
		return int(n)
	}
	if data, ok := root["data"].(map[string]any); ok {
		if n, ok := numericField(data, "progress"); ok {
			return int(n)
		}
	}
	return 0
}

func arrayField(obj map[string]any, key string) []any {
	if v, ok := obj[key].([]any); ok {
		return v
	}
	return nil
}

// numericField reads a number that may arrive as a JSON number or a
// numeric string.
func numericField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// scalarString renders a string or number field as a string id.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	}
	return ""
}
