package delivery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Sleeper pauses between attempts. Implementations return early with the
// context error when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(sleepWithContext)

type controllerOptions struct {
	sleeper Sleeper
	logger  logrus.FieldLogger
}

func defaultControllerOptions() controllerOptions {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return controllerOptions{
		sleeper: TimerSleeper,
		logger:  discard,
	}
}

type ControllerOption func(opts *controllerOptions)

func WithSleeper(s Sleeper) ControllerOption {
	return func(opts *controllerOptions) {
		if s != nil {
			opts.sleeper = s
		}
	}
}

func WithLogger(l logrus.FieldLogger) ControllerOption {
	return func(opts *controllerOptions) {
		if l != nil {
			opts.logger = l
		}
	}
}

// Controller drives a Transport until it succeeds or the attempt budget of
// its RetryConfig is spent. A Controller is safe for concurrent use.
type Controller struct {
	config  RetryConfig
	options controllerOptions
}

// NewController returns a controller for config. Zero fields of config are
// filled with defaults; call RetryConfig.Validate first to reject bad values.
func NewController(config RetryConfig, opts ...ControllerOption) *Controller {
	config.complete()

	options := defaultControllerOptions()

	for _, opt := range opts {
		opt(&options)
	}

	return &Controller{
		config:  config,
		options: options,
	}
}

func (c *Controller) Config() RetryConfig {
	return c.config
}

// Deliver sends op through t. It returns nil after the first successful
// attempt. Otherwise it sleeps Delay(attempt) between attempts and, once
// MaxAttempts attempts have failed, returns the error of the last one.
func (c *Controller) Deliver(ctx context.Context, op Operation, t Transport) error {
	var lastErr error

	for attempt := 0; attempt < int(c.config.MaxAttempts); attempt++ {
		if attempt > 0 {
			delay := c.config.Delay(attempt - 1)

			c.options.logger.
				WithField("address", op.Address).
				WithField("attempt", attempt).
				WithField("delay", delay).
				Debugf("delivery attempt failed, retrying: %s", lastErr)

			if err := c.options.sleeper.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("%w (last attempt: %w)", err, lastErr)
			}
		}

		err := t.Send(ctx, op)
		if err == nil {
			return nil
		}

		lastErr = err
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
