package redpanda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdaptivePoller(t *testing.T) {
	ap := NewAdaptivePoller(100*time.Millisecond, 350*time.Millisecond)
	assert.Zero(t, ap.NextInterval())

	ap.RecordFailure()
	assert.Equal(t, 100*time.Millisecond, ap.NextInterval())
	ap.RecordFailure()
	assert.Equal(t, 200*time.Millisecond, ap.NextInterval())
	ap.RecordFailure()
	assert.Equal(t, 350*time.Millisecond, ap.NextInterval())
	assert.Equal(t, 3, ap.ConsecutiveFailures())

	ap.RecordSuccess()
	assert.Zero(t, ap.NextInterval())
}

func TestNewAdaptivePoller_Defaults(t *testing.T) {
	ap := NewAdaptivePoller(0, 0)
	ap.RecordFailure()
	assert.Equal(t, 250*time.Millisecond, ap.NextInterval())
}
