package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"media_gateway/internal/models"
)

// ProviderRepository handles provider database operations
type ProviderRepository struct {
	db *DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetByID retrieves a provider by ID
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	query := `
		SELECT id, name, display_name, provider_type, encrypted_credential,
		       config, enabled, deleted, created_at, updated_at
		FROM providers
		WHERE id = $1 AND deleted = FALSE
	`

	err := r.db.conn.GetContext(ctx, &provider, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	r.resolve(&provider)
	return &provider, nil
}

// ListEnabledByType returns all enabled, non-deleted providers of the given
// capability type, credentials decrypted and model lists parsed. Results
// are cached per type.
func (r *ProviderRepository) ListEnabledByType(ctx context.Context, providerType string) ([]*models.Provider, error) {
	cacheKey := "providers:" + providerType
	if cached, found := r.db.providerCache.Get(cacheKey); found {
		return cached.([]*models.Provider), nil
	}

	query := `
		SELECT id, name, display_name, provider_type, encrypted_credential,
		       config, enabled, deleted, created_at, updated_at
		FROM providers
		WHERE provider_type = $1 AND enabled = TRUE AND deleted = FALSE
		ORDER BY name
	`

	var providers []*models.Provider
	err := r.db.conn.SelectContext(ctx, &providers, query, providerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	for _, p := range providers {
		r.resolve(p)
	}

	r.db.providerCache.Set(cacheKey, providers)
	return providers, nil
}

// resolve decrypts the credential and parses the model list. A failed
// decryption marks the provider unusable instead of failing the lookup.
func (r *ProviderRepository) resolve(p *models.Provider) {
	p.Models = models.ParseModels(p.Config)

	if p.EncryptedCredential == "" {
		return
	}
	if r.db.encryption == nil {
		p.CredentialInvalid = true
		return
	}
	credential, err := r.db.encryption.DecryptString(p.EncryptedCredential)
	if err != nil {
		p.CredentialInvalid = true
		return
	}
	p.Credential = credential
}
