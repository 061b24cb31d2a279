package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType enumerates supported provider capability types.
type ProviderType string

const (
	ProviderTypeTextToImage    ProviderType = "text-to-image"
	ProviderTypeImageToImage   ProviderType = "image-to-image"
	ProviderTypeTextToVideo    ProviderType = "text-to-video"
	ProviderTypeImageToVideo   ProviderType = "image-to-video"
	ProviderTypeImageAnalysis  ProviderType = "image-analysis"
	ProviderTypeVideoAnalysis  ProviderType = "video-analysis"
	ProviderTypeVoiceClone     ProviderType = "voice-clone"
	ProviderTypePromptOptimize ProviderType = "prompt-optimize"
)

// IsVideo reports whether the type produces video artifacts.
func (t ProviderType) IsVideo() bool {
	return t == ProviderTypeTextToVideo || t == ProviderTypeImageToVideo
}

// Provider represents a configured third-party generation API endpoint.
// The config column carries the base endpoint, header templates, response
// mode and the model list; legacy deployments stored these under varying
// key names, which the accessors below absorb.
type Provider struct {
	ID                  uuid.UUID `db:"id"`
	Name                string    `db:"name"`
	DisplayName         string    `db:"display_name"`
	ProviderType        string    `db:"provider_type"`
	EncryptedCredential string    `db:"encrypted_credential"`
	Config              JSONB     `db:"config"`
	Enabled             bool      `db:"enabled"`
	Deleted             bool      `db:"deleted"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`

	// Populated by the storage layer, never persisted:
	Credential        string  `db:"-"` // decrypted credential
	CredentialInvalid bool    `db:"-"` // decryption failed, provider unusable
	Models            []Model `db:"-"` // parsed from Config
}

// APIURL returns the submission endpoint for generation calls.
func (p *Provider) APIURL() string {
	if u := p.Config.String("api_url"); u != "" {
		return u
	}
	return p.Config.String("base_url")
}

// HeaderTemplates returns configured header templates. Values may contain
// an {apiKey} placeholder substituted with the decrypted credential.
func (p *Provider) HeaderTemplates() map[string]string {
	raw := p.Config.Map("headers")
	if len(raw) == 0 {
		return nil
	}
	headers := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return headers
}

// ResponseMode returns the declared response mode: "sync-json", "stream",
// or empty for auto-detection.
func (p *Provider) ResponseMode() string {
	return p.Config.String("response_mode")
}

// FindModel returns the configured model matching name, probing the legacy
// alias keys. Nil when the provider carries no such model.
func (p *Provider) FindModel(name string) *Model {
	for i := range p.Models {
		if p.Models[i].MatchesName(name) {
			return &p.Models[i]
		}
	}
	return nil
}

// Generic reports whether the provider has no configured model list and
// therefore accepts any model of its type.
func (p *Provider) Generic() bool {
	return len(p.Models) == 0
}
