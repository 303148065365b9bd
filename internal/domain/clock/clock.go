// Package clock keeps the elapsed time of the match being tagged.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultInterval = time.Second

// Clock counts whole ticks since Start. It only advances while running, and a
// tick delivered after Stop or a newer Start is ignored.
type Clock struct {
	clk      clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	seconds int
	running bool
	gen     uint64
	stop    chan struct{}
	onTick  func(seconds int)
}

// New creates a stopped clock at zero.
func New(opts ...Option) *Clock {
	c := &Clock{
		clk:      clockwork.NewRealClock(),
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTick registers fn to be called after every counted tick, outside the
// clock's lock. Passing nil removes it.
func (c *Clock) OnTick(fn func(seconds int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// Start resets the counter to zero and starts ticking. A running clock is
// restarted.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.seconds = 0
	c.running = true
	c.gen++
	c.stop = make(chan struct{})

	// created here so a fake clock sees the ticker before Start returns
	ticker := c.clk.NewTicker(c.interval)
	go c.loop(c.gen, ticker, c.stop)
}

// Stop halts the clock and keeps the counter.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Reset halts the clock and zeroes the counter.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.seconds = 0
}

func (c *Clock) stopLocked() {
	if !c.running {
		return
	}
	c.running = false
	c.gen++
	close(c.stop)
	c.stop = nil
}

// Seconds returns the elapsed whole seconds.
func (c *Clock) Seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) loop(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.tick(gen)
		}
	}
}

func (c *Clock) tick(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.seconds++
	s, fn := c.seconds, c.onTick
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Format renders seconds as zero-padded MM:SS. Minutes are not capped, so an
// hour and a bit reads "61:01".
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Minute is the match minute for an elapsed second count.
func Minute(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds / 60
}
