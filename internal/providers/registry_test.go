package providers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_gateway/internal/models"
	"media_gateway/internal/storage"
)

type stubLister struct {
	providers []*models.Provider
	err       error
}

func (s *stubLister) ListEnabledByType(_ context.Context, _ string) ([]*models.Provider, error) {
	return s.providers, s.err
}

func TestFindProviderExplicitModelWins(t *testing.T) {
	generic := &models.Provider{Name: "generic", Credential: "k1"}
	specific := &models.Provider{
		Name:       "flux-host",
		Credential: "k2",
		Models:     []models.Model{{Name: "flux-1.0", DefaultCost: 10}},
	}
	reg := NewRegistry(&stubLister{providers: []*models.Provider{generic, specific}}, zerolog.Nop())

	p, m, err := reg.FindProvider(context.Background(), "text-to-image", "flux-1.0")
	require.NoError(t, err)
	assert.Equal(t, "flux-host", p.Name)
	assert.Equal(t, 10, m.DefaultCost)
}

func TestFindProviderGenericFallback(t *testing.T) {
	specific := &models.Provider{
		Name:       "flux-host",
		Credential: "k",
		Models:     []models.Model{{Name: "flux-1.0"}},
	}
	generic := &models.Provider{Name: "generic", Credential: "k"}
	reg := NewRegistry(&stubLister{providers: []*models.Provider{specific, generic}}, zerolog.Nop())

	p, m, err := reg.FindProvider(context.Background(), "text-to-image", "unknown-model")
	require.NoError(t, err)
	assert.Equal(t, "generic", p.Name)
	assert.Equal(t, "unknown-model", m.Name)
	assert.Empty(t, m.CostRules)
}

func TestFindProviderGenericDefaultCost(t *testing.T) {
	generic := &models.Provider{
		Name:       "generic",
		Credential: "k",
		Config:     models.JSONB{"default_cost": float64(5)},
	}
	reg := NewRegistry(&stubLister{providers: []*models.Provider{generic}}, zerolog.Nop())

	_, m, err := reg.FindProvider(context.Background(), "text-to-image", "unknown-model")
	require.NoError(t, err)
	// Pricing comes from the provider config, not a zero-cost model.
	assert.Equal(t, 5, m.DefaultCost)
	assert.Equal(t, 10, m.CalculateCost("1K", 0, 2))
}

func TestFindProviderMatchesAlias(t *testing.T) {
	specific := &models.Provider{
		Name:       "flux-host",
		Credential: "k",
		Models: models.ParseModels(models.JSONB{
			"models": []any{map[string]any{"name": "flux-1.0", "alias": "FLUX-PRO"}},
		}),
	}
	reg := NewRegistry(&stubLister{providers: []*models.Provider{specific}}, zerolog.Nop())

	p, _, err := reg.FindProvider(context.Background(), "text-to-image", "flux-pro")
	require.NoError(t, err)
	assert.Equal(t, "flux-host", p.Name)
}

func TestFindProviderSkipsInvalidCredential(t *testing.T) {
	broken := &models.Provider{
		Name:              "broken",
		CredentialInvalid: true,
		Models:            []models.Model{{Name: "flux-1.0"}},
	}
	reg := NewRegistry(&stubLister{providers: []*models.Provider{broken}}, zerolog.Nop())

	_, _, err := reg.FindProvider(context.Background(), "text-to-image", "flux-1.0")
	assert.ErrorIs(t, err, storage.ErrProviderNotFound)
}

func TestFindProviderNoneConfigured(t *testing.T) {
	reg := NewRegistry(&stubLister{}, zerolog.Nop())

	_, _, err := reg.FindProvider(context.Background(), "text-to-video", "any")
	assert.ErrorIs(t, err, storage.ErrProviderNotFound)
}
