// Package provider holds the error types shared by the outbound API clients.
//
// Every client distinguishes two hard failures: a ConfigError, raised before
// any network I/O when a credential or identifier is missing, and a
// ProviderError, raised when the remote API answers with a non-2xx status.
// Callers use errors.As to tell them apart.
package provider

import (
	"fmt"
	"io"
	"net/http"
)

// MaxErrorBody is the number of response body bytes kept on a ProviderError.
const MaxErrorBody = 500

// ConfigError reports a missing or invalid setting detected before I/O.
type ConfigError struct {
	Provider string // "deepgram", "gemini", "cartesia"
	Field    string // e.g. "api_key", "voice_id"
	Msg      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}

// MissingKey builds the ConfigError for an absent API credential.
func MissingKey(provider, envName string) *ConfigError {
	return &ConfigError{
		Provider: provider,
		Field:    "api_key",
		Msg:      fmt.Sprintf("missing api key (set %s)", envName),
	}
}

// ProviderError is a non-2xx response from a remote API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string // truncated to MaxErrorBody bytes
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Truncate returns at most n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// FromResponse reads a bounded prefix of resp.Body and wraps it in a
// ProviderError. It does not close the body.
func FromResponse(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       Truncate(string(body), MaxErrorBody),
	}
}

// OK reports whether code is a 2xx status.
func OK(code int) bool {
	return code >= 200 && code < 300
}
