// Package recorder turns operator taps into events, hands them to the
// dispatch queue and reports completed writes back to the session.
package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/quicktagger/internal/adapters/mq/queue"
	"github.com/okian/quicktagger/internal/domain/dedupe"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
)

// Session is the part of the state machine the recorder needs.
type Session interface {
	Stamp(teamID string, et model.EventType) (session.Stamp, error)
	Confirm(epoch uint64, text string) bool
}

// Enqueuer accepts jobs for the writer pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, j queue.Job) error
}

// Publisher mirrors written events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
}

// Receipt describes what Record did with a tap.
type Receipt struct {
	Event     model.Event `json:"event"`
	Duplicate bool        `json:"duplicate,omitempty"`
	Dropped   bool        `json:"dropped,omitempty"`
}

// Recorder implements worker.Reporter for the jobs it enqueues.
type Recorder struct {
	session   Session
	queue     Enqueuer
	deduper   dedupe.Deduper
	publisher Publisher
	logger    logger.Logger
}

// New creates a recorder stamping events from s and dispatching them to q.
func New(s Session, q Enqueuer, opts ...Option) *Recorder {
	r := &Recorder{session: s, queue: q}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("recorder")
	}
	return r
}

// Record stamps an event for teamID and dispatches it without waiting for
// the write. Errors only come from the session: no active match, a team
// outside the match or an invalid type. A repeated key is acknowledged as a
// duplicate, and a full or closed queue drops the event after logging it.
func (r *Recorder) Record(ctx context.Context, teamID string, et model.EventType, key string) (Receipt, error) {
	stamp, err := r.session.Stamp(teamID, et)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Event: stamp.Event}

	if key != "" && r.deduper != nil {
		if r.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordEventDuplicate()
			r.logger.Debug(ctx, "duplicate event skipped", logger.String("key", key))
			receipt.Duplicate = true
			return receipt, nil
		}
	}

	job := queue.Job{
		Event:    stamp.Event,
		TeamName: stamp.TeamName,
		Epoch:    stamp.Epoch,
		Key:      key,
	}
	if err := r.queue.Enqueue(ctx, job); err != nil {
		r.forget(ctx, key)
		metrics.RecordEventDropped()
		level := r.logger.Error
		if errors.Is(err, queue.ErrQueueClosed) {
			level = r.logger.Warn
		}
		level(ctx, "event dropped before dispatch",
			logger.String("match_id", stamp.Event.MatchID),
			logger.String("team_id", teamID),
			logger.String("event_type", et.String()),
			logger.Error(err),
		)
		receipt.Dropped = true
		return receipt, nil
	}

	metrics.RecordEventDispatched(et.Category().String())
	return receipt, nil
}

// Written confirms the event on the feedback channel and mirrors it to the
// publisher.
func (r *Recorder) Written(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if !r.session.Confirm(j.Epoch, Confirmation(j.TeamName, j.Event.Type)) {
		r.logger.Debug(ctx, "confirmation skipped for a previous session",
			logger.String("match_id", j.Event.MatchID))
	}

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, j.Event); err != nil {
		metrics.RecordPublishFailure()
		r.logger.Warn(ctx, "event publish failed",
			logger.String("match_id", j.Event.MatchID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordEventPublished()
}

// Failed releases the idempotency key so the operator can tap again. The
// worker has already logged the failure.
func (r *Recorder) Failed(ctx context.Context, j queue.Job, _ error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	r.forget(ctx, j.Key)
}

func (r *Recorder) forget(ctx context.Context, key string) {
	if key != "" && r.deduper != nil {
		r.deduper.Unrecord(ctx, key)
	}
}

// Confirmation is the toast text for a written event.
func Confirmation(teamName string, et model.EventType) string {
	if teamName == "" {
		teamName = "Team"
	}
	return fmt.Sprintf("Logged: %s - %s", teamName, et.Label())
}
