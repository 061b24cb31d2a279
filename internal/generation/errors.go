package generation

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure so callers branch on kind rather
// than matching message strings.
type Kind string

const (
	// KindConfiguration covers failures of the gateway's own setup: no
	// provider for the requested type/model, missing endpoints, broken
	// mapping rules.
	KindConfiguration Kind = "configuration"
	// KindInsufficientBalance means the user's credit balance does not
	// cover the request cost.
	KindInsufficientBalance Kind = "insufficient-balance"
	// KindProviderCall covers transport-level failures talking to the
	// provider: network errors, timeouts, non-2xx statuses.
	KindProviderCall Kind = "provider-call"
	// KindResponseParse means the provider answered but no known response
	// shape matched.
	KindResponseParse Kind = "response-parse"
	// KindProviderBusiness is an explicit error envelope from the
	// provider: rejected credential, content policy, quota.
	KindProviderBusiness Kind = "provider-business"
)

// Error is a classified generation failure. Message is safe to show to
// end users; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or empty when err is not a
// generation error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
