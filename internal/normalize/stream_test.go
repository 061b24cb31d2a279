package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldStream_SucceededTerminal(t *testing.T) {
	body := strings.Join([]string{
		`data: {"status":"running","progress":10}`,
		`data: {"status":"running","progress":80}`,
		`data: {"status":"succeeded","results":[{"url":"https://cdn.test/a.png"}]}`,
	}, "\n")

	res, err := Normalize(body, Options{Mode: ModeStream})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, res.ContentURLs)
}

func TestFoldStream_URLStickyAcrossLines(t *testing.T) {
	// The URL arrives mid-stream and the final frame only carries the
	// status; the earlier URL must survive.
	body := strings.Join([]string{
		`data: {"status":"running","results":[{"url":"https://cdn.test/a.png"}],"pid":"p-1"}`,
		`data: {"status":"succeeded"}`,
	}, "\n")

	res, err := Normalize(body, Options{Mode: ModeStream})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, res.ContentURLs)
	assert.Equal(t, "p-1", res.PID)
}

func TestFoldStream_RunningWithoutURLIsRecoverable(t *testing.T) {
	body := strings.Join([]string{
		`data: {"status":"running","progress":5,"pid":"p-9"}`,
		`data: {"status":"running","progress":30}`,
	}, "\n")

	res, err := Normalize(body, Options{Mode: ModeStream})
	require.NoError(t, err, "mid-flight stream end is not a hard failure")
	assert.True(t, res.Pending())
	assert.Equal(t, "p-9", res.PID)
	assert.Equal(t, 30, res.Progress)
}

func TestFoldStream_FailedTerminal(t *testing.T) {
	body := strings.Join([]string{
		`data: {"status":"running"}`,
		`data: {"status":"failed","failure_reason":"content policy violation"}`,
	}, "\n")

	_, err := Normalize(body, Options{Mode: ModeStream})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "content policy violation", perr.Message)
}

func TestFoldStream_KeepAliveFramesSkipped(t *testing.T) {
	body := strings.Join([]string{
		`data: {"status":"running"}`,
		``,
		`: keep-alive`,
		`data: [DONE]`,
		`data: {"status":"succeeded","url":"https://cdn.test/a.png"}`,
	}, "\n")

	res, err := Normalize(body, Options{Mode: ModeStream})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, res.ContentURLs)
}

func TestFoldStream_AutoDetection(t *testing.T) {
	body := `data: {"status":"succeeded","url":"https://cdn.test/a.png"}`
	res, err := Normalize(body, Options{Mode: ModeAuto})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, res.Status)
}

func TestFoldStream_VideoStream(t *testing.T) {
	body := strings.Join([]string{
		`data: {"status":"running"}`,
		`data: {"status":"succeeded","video_url":"https://cdn.test/a.mp4"}`,
	}, "\n")

	res, err := Normalize(body, Options{Mode: ModeStream, Video: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.mp4", res.VideoURL)
}

func TestFoldStream_SucceededWithoutURLIsParseError(t *testing.T) {
	_, err := Normalize(`data: {"status":"succeeded"}`, Options{Mode: ModeStream})
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}
