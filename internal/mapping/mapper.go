// Package mapping builds outbound provider request bodies from internal
// generation requests and operator-configured mapping rules.
package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"media_gateway/internal/models"
)

const baseSize1K = 1024

// Dimensions converts a human resolution label ("1K"/"2K"/"4K") and an
// aspect-ratio string "W:H" into pixel width and height. The base edge is
// 1024px at 1K and doubles per tier; the height is integer-truncated from
// the ratio. "Auto", malformed or missing ratios produce a square.
func Dimensions(resolution, aspectRatio string) (int, int) {
	base := baseSize1K
	switch strings.ToUpper(strings.TrimSpace(resolution)) {
	case "2K":
		base = baseSize1K * 2
	case "4K":
		base = baseSize1K * 4
	}

	w, h, ok := parseRatio(aspectRatio)
	if !ok {
		return base, base
	}
	return base, base * h / w
}

func parseRatio(ratio string) (int, int, bool) {
	ratio = strings.TrimSpace(ratio)
	if ratio == "" || strings.EqualFold(ratio, "auto") {
		return 0, 0, false
	}
	parts := strings.SplitN(ratio, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// BuildContext assembles the mapper's working context: the request's own
// fields plus derived convenience fields providers commonly expect
// (width/height, n/variants mirroring quantity, size mirroring the
// computed dimensions).
func BuildContext(req *models.GenerateRequest) map[string]any {
	ctx := map[string]any(req.Params())

	width, height := Dimensions(req.Resolution, req.AspectRatio)
	ctx["width"] = width
	ctx["height"] = height
	ctx["size"] = fmt.Sprintf("%dx%d", width, height)

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	ctx["n"] = quantity
	ctx["variants"] = quantity

	return ctx
}

// Apply builds the outbound request body by running the mapping rules over
// the context. Provider-wide rules run first and model-specific rules last,
// so a model-specific rule overrides a provider-wide one targeting the same
// field. Unmapped context fields pass through unchanged. This stage never
// raises business errors.
func Apply(context map[string]any, rules []models.MappingRule, modelName string) map[string]any {
	output := make(map[string]any, len(context))
	for k, v := range context {
		output[k] = v
	}

	for _, rule := range orderRules(rules, modelName) {
		applyRule(output, context, rule)
	}
	return output
}

func orderRules(rules []models.MappingRule, modelName string) []models.MappingRule {
	ordered := make([]models.MappingRule, 0, len(rules))
	for _, r := range rules {
		if r.ProviderWide() {
			ordered = append(ordered, r)
		}
	}
	for _, r := range rules {
		if !r.ProviderWide() && strings.EqualFold(r.ModelName, modelName) {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

func applyRule(output, context map[string]any, rule models.MappingRule) {
	switch rule.Kind {
	case models.RuleKindFieldRename:
		value, ok := context[rule.SourceField]
		if !ok {
			return // nothing to rename, skip silently
		}
		output[rule.TargetField] = value
		// Drop the source key only when the output still carries the
		// context value verbatim; an earlier rule may have rewritten it.
		if current, present := output[rule.SourceField]; present && reflect.DeepEqual(current, value) && rule.SourceField != rule.TargetField {
			delete(output, rule.SourceField)
		}
	case models.RuleKindFixedValue:
		output[rule.TargetField] = Coerce(rule.FixedValue, rule.ValueType)
	}
}
