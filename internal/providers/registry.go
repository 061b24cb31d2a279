// Package providers resolves generation requests to configured providers
// and dispatches HTTP calls to them.
package providers

import (
	"context"

	"github.com/rs/zerolog"

	"media_gateway/internal/models"
	"media_gateway/internal/storage"
)

// ProviderLister exposes the enabled providers of a capability type.
// Satisfied by storage.ProviderRepository.
type ProviderLister interface {
	ListEnabledByType(ctx context.Context, providerType string) ([]*models.Provider, error)
}

// Registry resolves a capability type and model name to a configured
// provider.
type Registry struct {
	repo   ProviderLister
	logger zerolog.Logger
}

// NewRegistry creates a new provider registry
func NewRegistry(repo ProviderLister, logger zerolog.Logger) *Registry {
	return &Registry{
		repo:   repo,
		logger: logger.With().Str("component", "provider-registry").Logger(),
	}
}

// FindProvider returns the provider to use for the given capability type
// and model. Matching policy: a provider whose model list explicitly
// carries the model wins; otherwise a generic provider of the right type
// (no model list configured) is used; otherwise storage.ErrProviderNotFound.
// Providers whose credential could not be decrypted are unusable and
// skipped.
func (r *Registry) FindProvider(ctx context.Context, providerType, modelName string) (*models.Provider, *models.Model, error) {
	candidates, err := r.repo.ListEnabledByType(ctx, providerType)
	if err != nil {
		return nil, nil, err
	}

	var generic *models.Provider
	for _, p := range candidates {
		if p.CredentialInvalid {
			r.logger.Warn().Str("provider", p.Name).Msg("skipping provider with undecryptable credential")
			continue
		}
		if m := p.FindModel(modelName); m != nil {
			return p, m, nil
		}
		if generic == nil && p.Generic() {
			generic = p
		}
	}

	if generic != nil {
		// Generic providers accept any model of their type. The provider
		// config's default_cost prices the call; without it the unknown
		// model would be free.
		return generic, &models.Model{
			Name:        modelName,
			DefaultCost: generic.Config.Int("default_cost"),
		}, nil
	}
	return nil, nil, storage.ErrProviderNotFound
}
