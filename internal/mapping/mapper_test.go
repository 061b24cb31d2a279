package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"media_gateway/internal/models"
)

func TestDimensions(t *testing.T) {
	tests := []struct {
		name       string
		resolution string
		ratio      string
		wantW      int
		wantH      int
	}{
		{"1K 16:9", "1K", "16:9", 1024, 576},
		{"2K 16:9", "2K", "16:9", 2048, 1152},
		{"4K square", "4K", "1:1", 4096, 4096},
		{"auto ratio is square", "1K", "Auto", 1024, 1024},
		{"missing ratio is square", "1K", "", 1024, 1024},
		{"malformed ratio is square", "1K", "16x9", 1024, 1024},
		{"unknown resolution defaults to 1K base", "", "4:3", 1024, 768},
		{"truncated height", "1K", "3:2", 1024, 682},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Dimensions(tt.resolution, tt.ratio)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestBuildContext(t *testing.T) {
	req := &models.GenerateRequest{
		Type:        "text-to-image",
		Prompt:      "a red fox",
		Model:       "flux-1.0",
		Resolution:  "1K",
		AspectRatio: "16:9",
		Quantity:    2,
	}

	ctx := BuildContext(req)

	assert.Equal(t, "a red fox", ctx["prompt"])
	assert.Equal(t, 1024, ctx["width"])
	assert.Equal(t, 576, ctx["height"])
	assert.Equal(t, "1024x576", ctx["size"])
	// The raw ratio stays reachable next to the computed size, so rules
	// can map whichever form a provider expects.
	assert.Equal(t, "16:9", ctx["aspect_ratio"])
	assert.Equal(t, 2, ctx["n"])
	assert.Equal(t, 2, ctx["variants"])
}

func TestApply_ModelRuleOverridesProviderRule(t *testing.T) {
	providerID := uuid.New()
	rules := []models.MappingRule{
		{ProviderID: providerID, ModelName: "flux-1.0", Kind: models.RuleKindFieldRename, SourceField: "prompt", TargetField: "content"},
		{ProviderID: providerID, Kind: models.RuleKindFieldRename, SourceField: "prompt", TargetField: "text"},
	}
	ctx := map[string]any{"prompt": "a red fox"}

	out := Apply(ctx, rules, "flux-1.0")

	// The provider-wide rule ran first, the model-specific one last.
	assert.Equal(t, "a red fox", out["text"])
	assert.Equal(t, "a red fox", out["content"])
	assert.NotContains(t, out, "prompt")

	// For a different model only the provider-wide rule applies.
	out = Apply(ctx, rules, "other-model")
	assert.Equal(t, "a red fox", out["text"])
	assert.NotContains(t, out, "content")
}

func TestApply_RenameSemantics(t *testing.T) {
	rules := []models.MappingRule{
		{Kind: models.RuleKindFieldRename, SourceField: "prompt", TargetField: "text"},
		{Kind: models.RuleKindFieldRename, SourceField: "missing", TargetField: "never"},
	}
	ctx := map[string]any{"prompt": "hello", "quantity": 1}

	out := Apply(ctx, rules, "")

	assert.Equal(t, "hello", out["text"])
	assert.NotContains(t, out, "prompt", "verbatim source key is removed")
	assert.NotContains(t, out, "never", "rules without a context value are skipped")
	assert.Equal(t, 1, out["quantity"], "unmapped fields pass through")
}

func TestApply_FixedValueCoercion(t *testing.T) {
	rules := []models.MappingRule{
		{Kind: models.RuleKindFixedValue, TargetField: "steps", FixedValue: "30", ValueType: models.ValueTypeInteger},
		{Kind: models.RuleKindFixedValue, TargetField: "hd", FixedValue: "true", ValueType: models.ValueTypeBoolean},
		{Kind: models.RuleKindFixedValue, TargetField: "style", FixedValue: "vivid", ValueType: models.ValueTypeString},
		{Kind: models.RuleKindFixedValue, TargetField: "bad", FixedValue: "not-a-number", ValueType: models.ValueTypeInteger},
	}

	out := Apply(map[string]any{}, rules, "")

	assert.Equal(t, 30, out["steps"])
	assert.Equal(t, true, out["hd"])
	assert.Equal(t, "vivid", out["style"])
	assert.Equal(t, "not-a-number", out["bad"], "invalid coercion falls back to the raw string")
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 5, Coerce("5", models.ValueTypeInteger))
	assert.Equal(t, false, Coerce("false", models.ValueTypeBoolean))
	assert.Equal(t, "x", Coerce("x", models.ValueTypeString))
	assert.Equal(t, "7.5", Coerce("7.5", models.ValueTypeInteger))
}
