// Package publish mirrors written events onto a message bus for downstream
// consumers. Publishing is best effort; callers log and move on.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/okian/quicktagger/internal/domain/model"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher sends events to a bus.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
	Close() error
}

// Envelope is the message body put on the bus.
type Envelope struct {
	ID          string         `json:"id"`
	PublishedAt time.Time      `json:"published_at"`
	Category    model.Category `json:"category"`
	Label       string         `json:"label"`
	Event       model.Event    `json:"event"`
}

// NewEnvelope wraps e with a fresh message id.
func NewEnvelope(e model.Event, now time.Time) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		PublishedAt: now.UTC(),
		Category:    e.Type.Category(),
		Label:       e.Type.Label(),
		Event:       e,
	}
}

// Encode returns the JSON body of env.
func (env Envelope) Encode() ([]byte, error) {
	return json.Marshal(env)
}

// Topic is the subject or routing key for e under prefix, e.g.
// "quicktagger.events.shot".
func Topic(prefix string, e model.Event) string {
	return prefix + "." + e.Type.Category().String()
}
