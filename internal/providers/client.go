package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media_gateway/internal/models"
)

const apiKeyPlaceholder = "{apiKey}"

// ClientConfig carries the HTTP timeouts for provider calls. Generation
// submits can legitimately take minutes on sync providers, so they get a
// much longer budget than status polls.
type ClientConfig struct {
	SubmitTimeout time.Duration
	FetchTimeout  time.Duration
}

// DefaultClientConfig returns the standard provider call timeouts.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SubmitTimeout: 120 * time.Second,
		FetchTimeout:  15 * time.Second,
	}
}

// CallResult is the raw outcome of one provider HTTP exchange.
type CallResult struct {
	StatusCode int
	Body       string
	Latency    time.Duration
	Endpoint   string
}

// Client dispatches HTTP requests to generation providers.
type Client struct {
	submitClient *http.Client
	fetchClient  *http.Client
	logger       zerolog.Logger
}

// NewClient creates a provider HTTP client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultClientConfig().SubmitTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultClientConfig().FetchTimeout
	}
	return &Client{
		submitClient: &http.Client{Timeout: cfg.SubmitTimeout},
		fetchClient:  &http.Client{Timeout: cfg.FetchTimeout},
		logger:       logger.With().Str("component", "provider-client").Logger(),
	}
}

// Submit sends the mapped request payload to the provider's API URL and
// returns the raw response body. Non-2xx responses are returned as an
// error together with the call result so the caller can record them.
func (c *Client) Submit(ctx context.Context, provider *models.Provider, payload map[string]any) (*CallResult, error) {
	url := provider.APIURL()
	if url == "" {
		return nil, fmt.Errorf("provider %s has no api_url configured", provider.Name)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	applyHeaders(req, provider)

	return c.do(c.submitClient, req)
}

// Fetch performs a status poll using a previously derived fetch spec.
func (c *Client) Fetch(ctx context.Context, provider *models.Provider, spec FetchSpec) (*CallResult, error) {
	var reader io.Reader
	if len(spec.Body) > 0 {
		reader = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, reader)
	if err != nil {
		return nil, err
	}
	applyHeaders(req, provider)

	return c.do(c.fetchClient, req)
}

func (c *Client) do(client *http.Client, req *http.Request) (*CallResult, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	result := &CallResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Latency:    time.Since(start),
		Endpoint:   req.URL.String(),
	}

	c.logger.Debug().
		Str("endpoint", result.Endpoint).
		Int("status", result.StatusCode).
		Dur("latency", result.Latency).
		Msg("provider call completed")

	return result, nil
}

// applyHeaders sets the provider's configured header templates on the
// request, substituting the {apiKey} placeholder with the decrypted
// credential. Providers without header templates fall back to a standard
// bearer token. Content-Type defaults to JSON unless a template sets it.
func applyHeaders(req *http.Request, provider *models.Provider) {
	templates := provider.HeaderTemplates()
	if len(templates) == 0 && provider.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+provider.Credential)
	}
	for name, tmpl := range templates {
		req.Header.Set(name, strings.ReplaceAll(tmpl, apiKeyPlaceholder, provider.Credential))
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
}
