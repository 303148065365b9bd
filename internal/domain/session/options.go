package session

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/quicktagger/internal/domain/clock"
	"github.com/okian/quicktagger/internal/domain/feedback"
	"github.com/okian/quicktagger/pkg/logger"
)

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTimeSource sets the clock used for match start times and, unless
// WithClock/WithFeedback are given, for the match clock and toast expiry.
func WithTimeSource(clk clockwork.Clock) Option {
	return func(m *Machine) {
		if clk != nil {
			m.clk = clk
		}
	}
}

// WithClock sets the match clock.
func WithClock(c *clock.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithFeedback sets the toast channel.
func WithFeedback(f *feedback.Channel) Option {
	return func(m *Machine) {
		if f != nil {
			m.feedback = f
		}
	}
}

// WithCloseTimeout bounds the background match status update.
func WithCloseTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.closeTimeout = d
		}
	}
}
