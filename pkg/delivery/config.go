package delivery

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidConfig = errors.New("delivery: invalid retry config")

const (
	DefaultMaxAttempts       = 10
	DefaultBackoffMultiplier = 5
	DefaultBaseDelay         = time.Millisecond
)

type RetryConfig struct {
	// Maximum number of delivery attempts, including the first one.
	// Default is 10; 1 disables retries.
	MaxAttempts uint32
	// Growth factor applied to the delay after every failed attempt.
	// Must be greater than 1. Default is 5.
	BackoffMultiplier float64
	// Delay before the second attempt.
	// Default is 1 millisecond.
	BaseDelay time.Duration
	// Upper bound for a single delay. Default is 0, which leaves the
	// geometric growth uncapped.
	MaxDelay time.Duration
	// File that receives records once all attempts have failed. Empty
	// disables buffering and the last delivery error is returned instead.
	BufferPath string
}

// DefaultRetryConfig returns the configuration used by clients built without
// an explicit one.
func DefaultRetryConfig() RetryConfig {
	var c RetryConfig
	c.complete()

	return c
}

// complete fills zero fields with defaults and replaces values that would
// break the growing-delay rule: a NaN or <= 1 multiplier becomes the default
// multiplier, a negative base delay the default base delay, a negative cap 0.
func (c *RetryConfig) complete() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.BackoffMultiplier == 0 || math.IsNaN(c.BackoffMultiplier) || c.BackoffMultiplier <= 1 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}

	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}

	if c.MaxDelay < 0 {
		c.MaxDelay = 0
	}
}

// Validate rejects values that complete would otherwise replace, then fills
// zero fields with defaults.
func (c *RetryConfig) Validate() error {
	switch {
	case c.BackoffMultiplier != 0 && (math.IsNaN(c.BackoffMultiplier) || c.BackoffMultiplier <= 1):
		return fmt.Errorf("%w: backoff multiplier %v must be greater than 1", ErrInvalidConfig, c.BackoffMultiplier)
	case c.BaseDelay < 0:
		return fmt.Errorf("%w: negative base delay %s", ErrInvalidConfig, c.BaseDelay)
	case c.MaxDelay < 0:
		return fmt.Errorf("%w: negative max delay %s", ErrInvalidConfig, c.MaxDelay)
	}

	c.complete()

	return nil
}

// Delay returns the pause that follows failed attempt number attempt
// (zero-based): BaseDelay * BackoffMultiplier^attempt, capped by MaxDelay
// when it is set.
func (c RetryConfig) Delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.BackoffMultiplier, float64(attempt))

	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}

	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(d)
}
