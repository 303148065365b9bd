package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures a Clock.
type Option func(*Clock)

// WithClock sets the time source, typically a clockwork.FakeClock in tests.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Clock) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}
