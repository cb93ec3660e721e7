// Package errors defines common error types used throughout the Rantly API wrapper.
//
// Malformed response envelopes are deliberately NOT represented here: the
// client absorbs them into empty default results (see pkg/types), so only
// configuration mistakes, authentication problems, upstream rejections and
// transport failures surface as errors.
package errors

import (
	"fmt"
	"strings"
)

// ConfigError indicates a problem with the client or pool configuration.
// These are the only errors that propagate as hard construction failures;
// they signal a programming or provisioning mistake, not a remote condition.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthRequiredError indicates an operation was attempted without a usable
// access token or a pre-seeded authenticated session. It is raised by the
// local precondition check before any network I/O happens.
type AuthRequiredError struct {
	// Operation is the name of the API operation that was attempted
	Operation string
}

func (e *AuthRequiredError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("authentication required for %s", e.Operation)
	}
	return "authentication required"
}

// RefreshError indicates the refresh endpoint did not yield a usable access
// token. The session is left unchanged when this is returned.
type RefreshError struct {
	// StatusCode is the HTTP status code (if a response was received)
	StatusCode int
	// Body contains the raw response body from the server, which may hold more details.
	Body string
	// Err is the underlying error, e.g. a network or JSON parsing error.
	Err error
}

func (e *RefreshError) Error() string {
	var sb strings.Builder
	sb.WriteString("refresh error")

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status code %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&sb, ", body: %q", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ", err: %v", e.Err)
	}

	return sb.String()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// APIError represents a non-auth 4xx/5xx response from the Rantly API.
// The body is passed through untouched for caller inspection.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// URL is the URL that was being accessed
	URL string
	// Body contains the raw response body (if available)
	Body string
}

func (e *APIError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("API request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// IsStatus reports whether err is an *APIError carrying the given status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == code
}

// TransportError indicates a network-level failure (timeout, connection
// reset, DNS). No partial state is mutated when this is returned, and the
// request is never retried automatically.
type TransportError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// Err contains the underlying error
	Err error
}

func (e *TransportError) Error() string {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("transport error during %s to %s: %s", e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("transport error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("transport error: %s", msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CredentialError indicates a problem reading or writing persisted
// credential files (missing token file on update, unwritable cookie file).
type CredentialError struct {
	// Path is the credential file involved
	Path string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *CredentialError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("credential error for %s: %s", e.Path, msg)
	}
	return fmt.Sprintf("credential error: %s", msg)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
