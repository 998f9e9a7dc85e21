package embedding

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError classifies an embedding provider failure. Unrecoverable
// failures (dead or misconfigured endpoint, bad credentials, malformed
// responses) should not be retried; recoverable ones (timeouts, rate limits)
// may be.
type ProviderError struct {
	Provider   string
	StatusCode int // zero when the request never got an HTTP response
	Malformed  bool
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Unrecoverable reports whether retrying is pointless: server errors,
// missing endpoint, bad credentials, or a response the client cannot parse.
// Timeouts, connection failures, and 429s are recoverable.
func (e *ProviderError) Unrecoverable() bool {
	if e.Malformed {
		return true
	}
	switch {
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	case e.StatusCode == http.StatusNotFound,
		e.StatusCode == http.StatusUnauthorized,
		e.StatusCode == http.StatusForbidden:
		return true
	}
	return false
}

// IsUnrecoverable reports whether err wraps an unrecoverable provider error.
func IsUnrecoverable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Unrecoverable()
}
