package models

import (
	"encoding/json"
	"strings"
)

// modelNameKeys lists the key names under which legacy provider
// configurations stored a model's identifier. Matching probes all of them.
var modelNameKeys = []string{"name", "id", "alias", "model", "model_name"}

// CostRule prices a generation when its constraints match the request.
// Empty resolution / zero duration act as wildcards.
type CostRule struct {
	Resolution string `json:"resolution,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	Cost       int    `json:"cost"`
}

// Model is a named capability variant offered by a provider.
type Model struct {
	Name        string     `json:"name"`
	DefaultCost int        `json:"default_cost"`
	CostRules   []CostRule `json:"cost_rules,omitempty"`

	// Capability metadata, free-form.
	Resolutions  []string       `json:"resolutions,omitempty"`
	AspectRatios []string       `json:"aspect_ratios,omitempty"`
	Durations    []int          `json:"durations,omitempty"`
	MaxQuantity  int            `json:"max_quantity,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// aliases collects every legacy identifier key found in the raw
	// config entry, Name included.
	aliases []string
}

// MatchesName reports whether name identifies this model under any of the
// legacy configuration keys.
func (m *Model) MatchesName(name string) bool {
	if name == "" {
		return false
	}
	if strings.EqualFold(m.Name, name) {
		return true
	}
	for _, alias := range m.aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

// CalculateCost computes the credit cost of one generation request. The
// first cost rule whose constraints all match wins, otherwise the default
// cost applies; the per-unit cost is multiplied by the requested quantity.
func (m *Model) CalculateCost(resolution string, duration int, quantity int) int {
	if quantity < 1 {
		quantity = 1
	}

	unit := m.DefaultCost
	for _, rule := range m.CostRules {
		if rule.Resolution != "" && !strings.EqualFold(rule.Resolution, resolution) {
			continue
		}
		if rule.Duration != 0 && rule.Duration != duration {
			continue
		}
		unit = rule.Cost
		break
	}

	return unit * quantity
}

// ParseModels extracts the model list from a provider config. Entries that
// carry no identifier under any known key are dropped.
func ParseModels(cfg JSONB) []Model {
	raw := cfg.Slice("models")
	if len(raw) == 0 {
		return nil
	}

	parsed := make([]Model, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		var m Model
		// Round-trip through JSON to pick up the declared fields.
		if b, err := json.Marshal(obj); err == nil {
			_ = json.Unmarshal(b, &m)
		}

		for _, key := range modelNameKeys {
			if v, ok := obj[key].(string); ok && v != "" {
				if m.Name == "" {
					m.Name = v
				}
				m.aliases = append(m.aliases, v)
			}
		}
		if m.Name == "" {
			continue
		}
		parsed = append(parsed, m)
	}
	return parsed
}
