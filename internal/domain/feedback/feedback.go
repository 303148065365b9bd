// Package feedback holds the single short-lived confirmation shown to the
// operator after an event is logged.
package feedback

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/quicktagger/pkg/metrics"
)

const defaultTTL = 2 * time.Second

// Message is the pending toast.
type Message struct {
	Text      string    `json:"text"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
	seq       uint64
}

// Channel keeps at most one Message. Publishing replaces it and restarts the
// expiry; an expiry scheduled for a replaced message never clears a newer one.
type Channel struct {
	clk clockwork.Clock
	ttl time.Duration

	mu       sync.Mutex
	current  *Message
	seq      uint64
	timer    clockwork.Timer
	onChange func(msg Message, visible bool)
}

// New creates an empty channel.
func New(opts ...Option) *Channel {
	c := &Channel{
		clk: clockwork.NewRealClock(),
		ttl: defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to be called, outside the lock, whenever the pending
// message is shown or cleared.
func (c *Channel) OnChange(fn func(msg Message, visible bool)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Publish shows text, replacing any pending message.
func (c *Channel) Publish(text string) {
	c.mu.Lock()
	c.cancelLocked()
	c.seq++
	seq := c.seq
	now := c.clk.Now()
	msg := Message{Text: text, ShownAt: now, ExpiresAt: now.Add(c.ttl), seq: seq}
	c.current = &msg
	c.timer = c.clk.AfterFunc(c.ttl, func() { c.expire(seq) })
	fn := c.onChange
	c.mu.Unlock()

	metrics.RecordFeedbackPublished()
	if fn != nil {
		fn(msg, true)
	}
}

// Clear drops the pending message, if any.
func (c *Channel) Clear() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.current = nil
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(Message{}, false)
	}
}

// Current returns the pending message.
func (c *Channel) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Message{}, false
	}
	return *c.current, true
}

func (c *Channel) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) expire(seq uint64) {
	c.mu.Lock()
	if c.current == nil || c.current.seq != seq {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.timer = nil
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(Message{}, false)
	}
}
