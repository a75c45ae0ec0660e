package redpanda

import (
	"context"
	"errors"

	"github.com/fairyhunter13/sift/internal/domain"
)

// failureCode maps a task error to a stable code for logs and dead-letter
// headers. The codes line up with the HTTP error envelope.
func failureCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		return "SCHEMA_INVALID"
	case errors.Is(err, domain.ErrUpstreamRateLimit), errors.Is(err, domain.ErrRateLimited):
		return "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "UPSTREAM_TIMEOUT"
	default:
		return "INTERNAL"
	}
}

// deadLetterWorthy reports whether a failed task should be kept for replay.
// A conflict means the screening already finished; a missing screening was deleted.
func deadLetterWorthy(code string) bool {
	switch code {
	case "", "CONFLICT", "NOT_FOUND":
		return false
	}
	return true
}
