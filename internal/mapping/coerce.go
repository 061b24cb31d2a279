package mapping

import (
	"strconv"

	"media_gateway/internal/models"
)

// Coerce converts a fixed-value rule literal to its declared type. Invalid
// coercions fall back to the raw string rather than failing the request.
func Coerce(raw string, valueType models.ValueType) any {
	switch valueType {
	case models.ValueTypeInteger:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case models.ValueTypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}
