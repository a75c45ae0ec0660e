package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.Config{
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: srv.URL + "/",
		OpenRouterModel:   "google/gemini-2.5-flash",
		OpenRouterTitle:   "Sift",
	})
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Sift", r.Header.Get("X-Title"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "google/gemini-2.5-flash", req.Model)
		assert.Zero(t, req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"model":"google/gemini-2.5-flash","choices":[{"message":{"content":"  {\"ok\":true}  "}}]}`))
	})

	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestGenerate_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		permanent bool
		rateLimit bool
	}{
		{"rate_limited", http.StatusTooManyRequests, false, true},
		{"bad_request", http.StatusBadRequest, true, false},
		{"unauthorized", http.StatusUnauthorized, true, false},
		{"server_error", http.StatusBadGateway, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})
			_, err := c.Generate(context.Background(), "p")
			require.Error(t, err)
			var perm *backoff.PermanentError
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
			assert.Equal(t, tt.rateLimit, errors.Is(err, domain.ErrUpstreamRateLimit))
		})
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestGenerate_MissingKey(t *testing.T) {
	t.Parallel()

	c := New(config.Config{OpenRouterBaseURL: "http://unused"})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
