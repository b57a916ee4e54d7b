package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedAppError(t *testing.T) {
	err := fmt.Errorf("save message: %w", Validation("message", "message is required"))

	assert.True(t, Is(err, CodeValidation))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(stderrors.New("plain"), CodeValidation))
}

func TestUpstreamUnavailableCarriesDetails(t *testing.T) {
	cause := stderrors.New("rpc error: code = Unavailable")
	err := UpstreamUnavailable("Failed to save message", cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, cause.Error(), err.Details)
	assert.ErrorIs(t, err, cause)
}

func TestNotConfiguredIsServerError(t *testing.T) {
	err := NotConfigured("AI service not configured")

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, CodeNotConfigured, err.Code)
	assert.Empty(t, err.Details)
}

func TestUpstreamUnavailableDropsRequestURL(t *testing.T) {
	cause := fmt.Errorf("gemini request: %w", &url.Error{
		Op:  "Post",
		URL: "https://upstream.example/generate?key=SECRET",
		Err: stderrors.New("dial tcp: connection refused"),
	})
	err := UpstreamUnavailable("AI completion request failed", cause)

	assert.Equal(t, "Post: dial tcp: connection refused", err.Details)
	assert.NotContains(t, err.Details, "SECRET")
	assert.ErrorIs(t, err, cause)
}
