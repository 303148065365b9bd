package feedback

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures a Channel.
type Option func(*Channel)

// WithClock sets the time source.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Channel) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithTTL sets how long a message stays visible.
func WithTTL(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.ttl = d
		}
	}
}
