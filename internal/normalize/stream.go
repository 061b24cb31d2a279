package normalize

import (
	"encoding/json"
	"strings"
)

// foldStream folds an SSE-style body (one JSON object per line, optionally
// prefixed "data: ") into a single Result. The last seen status wins, while
// URLs, pid and failure reason are sticky: a line missing a field never
// erases a value an earlier line delivered. Frames that fail to parse are
// keep-alives and are skipped.
func foldStream(body string, opts Options) (*Result, error) {
	var (
		lastStatus string
		urls       []string
		videoURL   string
		pid        string
		taskID     string
		failReason string
		progress   int
	)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, streamSentinel))
		if line == "" || line == "[DONE]" {
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}

		if s := statusOf(obj); s != "" {
			lastStatus = s
		}
		for _, match := range shapeMatchers {
			res := match(obj, opts.Video)
			if res == nil {
				continue
			}
			if len(res.ContentURLs) > 0 {
				urls = res.ContentURLs
			}
			if res.VideoURL != "" {
				videoURL = res.VideoURL
			}
			break
		}
		if p := extractPID(obj); p != "" {
			pid = p
		}
		if id := extractTaskID(obj); id != "" {
			taskID = id
		}
		if reason := bestMessageIfPresent(obj); reason != "" {
			failReason = reason
		}
		if pr := progressOf(obj); pr > 0 {
			progress = pr
		}
	}

	switch lastStatus {
	case "succeeded", "success", "completed":
		if videoURL == "" && len(urls) == 0 {
			return nil, &ParseError{Message: "stream finished without a content url"}
		}
		return &Result{Status: StatusSucceeded, ContentURLs: urls, VideoURL: videoURL, PID: pid, Progress: 100}, nil
	case "failed", "error":
		if failReason == "" {
			failReason = "generation failed"
		}
		return nil, &ProviderError{Message: friendlyMessage(failReason)}
	}

	// Stream ended mid-flight. URLs already delivered are good output;
	// otherwise the task is still processing on the provider side and the
	// caller should poll rather than fail.
	if videoURL != "" || len(urls) > 0 {
		return &Result{Status: StatusSucceeded, ContentURLs: urls, VideoURL: videoURL, PID: pid, Progress: progress}, nil
	}
	return &Result{Status: StatusRunning, PID: pid, ExternalTaskID: taskID, Progress: progress}, nil
}

// bestMessageIfPresent extracts a failure message only when one of the
// error fields actually exists, so healthy frames do not pollute the sticky
// failure reason.
func bestMessageIfPresent(obj map[string]any) string {
	for _, key := range []string{"failure_reason", "error", "msg", "message"} {
		switch v := obj[key].(type) {
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
	return ""
}
