package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleKind enumerates mapping rule kinds.
type RuleKind string

const (
	RuleKindFieldRename RuleKind = "field-rename"
	RuleKindFixedValue  RuleKind = "fixed-value"
)

// ValueType declares how a fixed-value rule's literal should be coerced.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeBoolean ValueType = "boolean"
)

// MappingRule is an operator-defined translation from an internal request
// field to a provider-specific field. An empty ModelName scopes the rule
// provider-wide; model-specific rules apply after and therefore override
// provider-wide ones targeting the same field.
type MappingRule struct {
	ID          uuid.UUID `db:"id"`
	ProviderID  uuid.UUID `db:"provider_id"`
	ModelName   string    `db:"model_name"`
	Kind        RuleKind  `db:"kind"`
	SourceField string    `db:"source_field"`
	TargetField string    `db:"target_field"`
	FixedValue  string    `db:"fixed_value"`
	ValueType   ValueType `db:"value_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ProviderWide reports whether the rule applies to every model of its
// provider.
func (r *MappingRule) ProviderWide() bool {
	return r.ModelName == ""
}
