package redpanda

import (
	"math"
	"sync"
	"time"
)

// AdaptivePoller spaces out polls after consecutive fetch failures and
// resets once a poll succeeds.
type AdaptivePoller struct {
	mu                 sync.Mutex
	baseInterval       time.Duration
	maxInterval        time.Duration
	backoffFactor      float64
	consecutiveFailure int
}

// NewAdaptivePoller creates a poller growing from base up to limit.
func NewAdaptivePoller(base, limit time.Duration) *AdaptivePoller {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if limit < base {
		limit = base
	}
	return &AdaptivePoller{baseInterval: base, maxInterval: limit, backoffFactor: 2}
}

// NextInterval returns how long to wait before the next poll.
func (ap *AdaptivePoller) NextInterval() time.Duration {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	if ap.consecutiveFailure == 0 {
		return 0
	}
	d := float64(ap.baseInterval) * math.Pow(ap.backoffFactor, float64(ap.consecutiveFailure-1))
	if d > float64(ap.maxInterval) {
		return ap.maxInterval
	}
	return time.Duration(d)
}

// RecordSuccess resets the backoff.
func (ap *AdaptivePoller) RecordSuccess() {
	ap.mu.Lock()
	ap.consecutiveFailure = 0
	ap.mu.Unlock()
}

// RecordFailure grows the backoff.
func (ap *AdaptivePoller) RecordFailure() {
	ap.mu.Lock()
	ap.consecutiveFailure++
	ap.mu.Unlock()
}

// ConsecutiveFailures reports failed polls since the last success.
func (ap *AdaptivePoller) ConsecutiveFailures() int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.consecutiveFailure
}
