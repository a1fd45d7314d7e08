package provider_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/echoline/internal/provider"
)

func TestFromResponseTruncatesBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 2000))),
	}

	perr := provider.FromResponse("gemini", resp)

	assert.Equal(t, 429, perr.StatusCode)
	assert.Len(t, perr.Body, provider.MaxErrorBody)
	assert.True(t, strings.HasPrefix(perr.Error(), "gemini HTTP 429: "))
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", provider.MissingKey("deepgram", "DEEPGRAM_API_KEY"))

	var cerr *provider.ConfigError
	require.True(t, errors.As(wrapped, &cerr))
	assert.Equal(t, "api_key", cerr.Field)
	assert.Contains(t, cerr.Error(), "DEEPGRAM_API_KEY")

	var perr *provider.ProviderError
	assert.False(t, errors.As(wrapped, &perr))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", provider.Truncate("abc", 5))
	assert.Equal(t, "ab", provider.Truncate("abc", 2))
}

func TestOK(t *testing.T) {
	assert.True(t, provider.OK(200))
	assert.True(t, provider.OK(204))
	assert.False(t, provider.OK(302))
	assert.False(t, provider.OK(500))
}
