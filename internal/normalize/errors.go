package normalize

import "fmt"

// ProviderError is an explicit error envelope returned by the provider
// (non-zero business code, error field, or failed status). The message has
// already been through the friendliness rewrite.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// ParseError reports a response body no known shape matcher could handle.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized provider response: %s", e.Message)
}
