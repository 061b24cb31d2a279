package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

//
// JSONB helper
//

// JSONB is a helper for Postgres jsonb columns.
// Backed by map[string]any and works with sqlx / database/sql.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("JSONB: expected []byte, got %T", value)
	}

	if len(b) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(b, j)
}

// String returns the string value under key, or "" when absent or not a
// string.
func (j JSONB) String(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the numeric value under key truncated to int, or 0 when
// absent or not a number. JSON decoding yields float64 for numbers.
func (j JSONB) Int(key string) int {
	switch v := j[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Map returns the object value under key, or nil.
func (j JSONB) Map(key string) map[string]any {
	if v, ok := j[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Slice returns the array value under key, or nil.
func (j JSONB) Slice(key string) []any {
	if v, ok := j[key].([]any); ok {
		return v
	}
	return nil
}
