package redpanda

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/sift/internal/domain"
)

func TestFailureCode(t *testing.T) {
	cases := map[string]error{
		"":                    nil,
		"CONFLICT":            fmt.Errorf("op=screening.finish: %w", domain.ErrConflict),
		"NOT_FOUND":           domain.ErrNotFound,
		"INVALID_ARGUMENT":    domain.ErrInvalidArgument,
		"SCHEMA_INVALID":      domain.ErrSchemaInvalid,
		"UPSTREAM_RATE_LIMIT": domain.NewUpstreamError("gemini", domain.ErrUpstreamRateLimit),
		"UPSTREAM_TIMEOUT":    context.DeadlineExceeded,
		"INTERNAL":            errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, failureCode(err), "error %v", err)
	}
}

func TestDeadLetterWorthy(t *testing.T) {
	assert.False(t, deadLetterWorthy("CONFLICT"))
	assert.False(t, deadLetterWorthy("NOT_FOUND"))
	assert.True(t, deadLetterWorthy("UPSTREAM_TIMEOUT"))
	assert.True(t, deadLetterWorthy("INTERNAL"))
}
