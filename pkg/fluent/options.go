package fluent

import (
	"github.com/sirupsen/logrus"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
	"github.com/quarks-tech/fluentforward-go/pkg/transport/tcp"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

type clientOptions struct {
	mode              wire.Mode
	timeMode          eventtime.Mode
	transport         delivery.Transport
	logger            logrus.FieldLogger
	sleeper           delivery.Sleeper
	compress          bool
	chunkID           bool
	chainInterceptors []Interceptor
	interceptor       Interceptor
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		mode:      wire.BinarySingle,
		timeMode:  eventtime.ModeStructured,
		transport: tcp.NewSender(),
		logger:    logrus.StandardLogger(),
		sleeper:   delivery.TimerSleeper,
	}
}

type Option func(opts *clientOptions)

// WithMode sets the encoding used by Post and PostWithTime: wire.Text or
// wire.BinarySingle (the default).
func WithMode(m wire.Mode) Option {
	return func(opts *clientOptions) {
		opts.mode = m
	}
}

// WithTimeMode selects integer or structured timestamps.
// Default is eventtime.ModeStructured.
func WithTimeMode(m eventtime.Mode) Option {
	return func(opts *clientOptions) {
		opts.timeMode = m
	}
}

// WithTransport replaces the TCP transport.
func WithTransport(t delivery.Transport) Option {
	return func(opts *clientOptions) {
		opts.transport = t
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(opts *clientOptions) {
		opts.logger = l
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(s delivery.Sleeper) Option {
	return func(opts *clientOptions) {
		opts.sleeper = s
	}
}

// WithCompression makes PostForward send gzip-compressed packed entries.
func WithCompression() Option {
	return func(opts *clientOptions) {
		opts.compress = true
	}
}

// WithChunkID stamps every forward batch with a unique chunk option.
func WithChunkID() Option {
	return func(opts *clientOptions) {
		opts.chunkID = true
	}
}

func WithInterceptor(i Interceptor) Option {
	return func(opts *clientOptions) {
		opts.interceptor = i
	}
}

func WithChainInterceptor(interceptors ...Interceptor) Option {
	return func(opts *clientOptions) {
		opts.chainInterceptors = append(opts.chainInterceptors, interceptors...)
	}
}
