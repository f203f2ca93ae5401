package magnetar

import (
	"time"

	"github.com/rs/zerolog"
	"magnetar/internal/logger"
)

// Options control how a Client talks to the device
type Options struct {
	Debug bool
	// Test replaces the network with a simulated device that acknowledges
	// every command
	Test   bool
	Dialer Dialer
	Sleep  func(time.Duration)
	Logger *zerolog.Logger
}

// Option mutates Options
type Option func(*Options)

// WithDebug enables per-command debug logging. The caller decides the
// process log level.
func WithDebug(debug bool) Option {
	return func(opts *Options) {
		opts.Debug = debug
	}
}

// WithTestMode swaps the transport for a simulated device
func WithTestMode(test bool) Option {
	return func(opts *Options) {
		opts.Test = test
	}
}

// WithDialer overrides how ports are opened
func WithDialer(d Dialer) Option {
	return func(opts *Options) {
		opts.Dialer = d
	}
}

// WithSleeper overrides the pause taken between commands
func WithSleeper(sleep func(time.Duration)) Option {
	return func(opts *Options) {
		opts.Sleep = sleep
	}
}

// WithLogger overrides the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = &l
	}
}

// NewOptions applies opts over the defaults
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.Dialer == nil {
		if o.Test {
			o.Dialer = NewSimulatedDialer(Ack)
		} else {
			o.Dialer = DefaultDialer{}
		}
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Logger == nil {
		l := logger.GetLogger("magnetar")
		o.Logger = &l
	}
	return o
}
