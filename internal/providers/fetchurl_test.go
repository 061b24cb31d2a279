package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveFetchSpec(t *testing.T) {
	tests := []struct {
		name       string
		submitURL  string
		taskID     string
		wantURL    string
		wantMethod string
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "draw path rewrites to unified result endpoint",
			submitURL:  "https://api.example.com/v1/draw/flux",
			taskID:     "ext-123",
			wantURL:    "https://api.example.com/v1/draw/result",
			wantMethod: http.MethodPost,
			wantBody:   `{"id":"ext-123"}`,
		},
		{
			name:       "video path rewrites to unified result endpoint",
			submitURL:  "https://api.example.com/v1/video/generate",
			taskID:     "vid-9",
			wantURL:    "https://api.example.com/v1/draw/result",
			wantMethod: http.MethodPost,
			wantBody:   `{"id":"vid-9"}`,
		},
		{
			name:       "submit suffix becomes task fetch path",
			submitURL:  "https://api.example.com/mj/submit",
			taskID:     "ext-7",
			wantURL:    "https://api.example.com/mj/task/ext-7/fetch",
			wantMethod: http.MethodGet,
		},
		{
			name:      "unknown url shape is an error",
			submitURL: "https://api.example.com/v1/images/generations",
			taskID:    "x",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := DeriveFetchSpec(tt.submitURL, tt.taskID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, spec.URL)
			assert.Equal(t, tt.wantMethod, spec.Method)
			assert.Equal(t, tt.wantBody, string(spec.Body))
		})
	}
}
