package gombus

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d21d3q/gombus/internal/session"
	"github.com/d21d3q/gombus/internal/transport"
)

type options struct {
	serial  transport.SerialConfig
	session session.Config
	logger  logrus.FieldLogger
}

// Option configures a Client.
type Option func(*options)

func buildOptions(opts []Option) options {
	cfg := options{session: session.DefaultConfig()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBaudRate overrides the 2400 baud default.
func WithBaudRate(baud int) Option {
	return func(o *options) { o.serial.BaudRate = baud }
}

// WithParity overrides the even parity the M-Bus standard prescribes.
// Changing it usually breaks communication with standard devices.
func WithParity(parity string) Option {
	return func(o *options) { o.serial.Parity = parity }
}

// WithTransmissionMultiplier pads the transmission-time estimate for slow
// devices; 1.2 by default.
func WithTransmissionMultiplier(m float64) Option {
	return func(o *options) { o.serial.Multiplier = m }
}

// WithMaxRetries sets the attempts per datagram exchange.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.session.MaxRetries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.session.RetryDelay = d }
}

// WithBaseTimeout sets the protocol wait added to every read on top of the
// transmission-time estimate.
func WithBaseTimeout(d time.Duration) Option {
	return func(o *options) { o.session.BaseTimeout = d }
}

// WithLogger attaches a logger to the session.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.logger = log }
}
