package config

import "time"

// RetryConfig describes bounded retry for transient generator failures.
type RetryConfig struct {
	MaxRetries      uint64
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	CallTimeout     time.Duration
}

// GetRetryConfig returns the generator retry configuration for the current environment.
func (c Config) GetRetryConfig() RetryConfig {
	maxElapsed, initial, maxInterval, mult := c.GetAIBackoffConfig()
	return RetryConfig{
		MaxRetries:      c.AIMaxRetries,
		MaxElapsedTime:  maxElapsed,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
		Multiplier:      mult,
		CallTimeout:     c.AICallTimeout,
	}
}
