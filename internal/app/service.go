// Package service composes the tagging engine and implements the
// dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	eventqueue "github.com/okian/quicktagger/internal/adapters/mq/queue"
	workerpool "github.com/okian/quicktagger/internal/adapters/mq/worker"
	"github.com/okian/quicktagger/internal/adapters/publish"
	repository "github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/adapters/repository/memory"
	"github.com/okian/quicktagger/internal/domain/clock"
	"github.com/okian/quicktagger/internal/domain/dedupe"
	"github.com/okian/quicktagger/internal/domain/feedback"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/recorder"
	"github.com/okian/quicktagger/internal/domain/roster"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service owns one tagging session and the pipeline behind it.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	publisher publish.Publisher
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	roster    *roster.Cache
	machine   *session.Machine
	recorder  *recorder.Recorder
	deduper   dedupe.Deduper

	// Configuration
	clk          clockwork.Clock
	workerCount  int
	queueSize    int
	dedupeSize   int
	tickInterval time.Duration
	feedbackTTL  time.Duration

	// State
	started bool
	stopped bool

	logger logger.Logger
}

// New constructs a Service. Components are built immediately so the session
// is usable before Start; Start only launches the event writers.
func New(opts ...Option) *Service {
	s := &Service{
		clk:          clockwork.NewRealClock(),
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		dedupeSize:   10_000,
		tickInterval: time.Second,
		feedbackTTL:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		st := memory.New()
		if err := st.LoadSeed(bytes.NewReader(memory.DemoSeed())); err != nil {
			s.logger.Error(context.Background(), "failed to load demo seed", logger.Error(err))
		}
		s.store = st
		s.logger.Info(context.Background(), "using in-memory store with demo seed")
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.roster = roster.New(s.store, roster.WithLogger(s.logger.Named("roster")))
	s.machine = session.New(s.store, s.roster,
		session.WithLogger(s.logger.Named("session")),
		session.WithTimeSource(s.clk),
		session.WithClock(clock.New(clock.WithClock(s.clk), clock.WithInterval(s.tickInterval))),
		session.WithFeedback(feedback.New(feedback.WithClock(s.clk), feedback.WithTTL(s.feedbackTTL))),
	)

	recOpts := []recorder.Option{recorder.WithLogger(s.logger.Named("recorder"))}
	if s.dedupeSize > 0 {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
		recOpts = append(recOpts, recorder.WithDeduper(s.deduper))
	}
	if s.publisher != nil {
		recOpts = append(recOpts, recorder.WithPublisher(s.publisher))
	}
	s.recorder = recorder.New(s.machine, s.queue, recOpts...)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.recorder,
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	return s
}

// Start launches the event writers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return nil
	}
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "tagging service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Capacity()),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("publisher", s.publisher != nil),
	)
	return nil
}

// Stop drains queued events, waits for background status updates and closes
// the publisher and store. A service that was never started only releases
// its resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping tagging service...")

	if s.started {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "event writers did not drain", logger.Error(err))
		}
	} else {
		_ = s.queue.Close()
	}
	s.machine.Close()

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close publisher", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "failed to close store", logger.Error(err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "tagging service stopped")
}

// Observe registers fn for session snapshots.
func (s *Service) Observe(fn func(session.Snapshot)) { s.machine.Observe(fn) }

// Snapshot returns the current session.
func (s *Service) Snapshot() session.Snapshot { return s.machine.Snapshot() }

// Login verifies credentials and loads the roster.
func (s *Service) Login(ctx context.Context, analystID, password string) error {
	return s.machine.Login(ctx, analystID, password)
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) {
	s.machine.Logout(ctx)
	if s.deduper != nil {
		s.deduper.Reset(ctx)
	}
}

func (s *Service) Roster() roster.Snapshot { return s.roster.Snapshot() }

func (s *Service) RefreshRoster(ctx context.Context) error { return s.machine.RefreshRoster(ctx) }

func (s *Service) Candidates() session.Candidates { return s.machine.Candidates() }

func (s *Service) SelectTournament(id string) error { return s.machine.SelectTournament(id) }

func (s *Service) SelectTeamA(id string) error { return s.machine.SelectTeamA(id) }

func (s *Service) SelectTeamB(id string) error { return s.machine.SelectTeamB(id) }

func (s *Service) SetDetails(details string) error { return s.machine.SetDetails(details) }

// StartMatch creates the match remotely and starts the clock.
func (s *Service) StartMatch(ctx context.Context) (model.Match, error) {
	return s.machine.StartMatch(ctx)
}

// EndMatch stops the clock and closes the match in the background.
func (s *Service) EndMatch(ctx context.Context) error { return s.machine.EndMatch(ctx) }

func (s *Service) ToggleAttackingThird() (bool, error) { return s.machine.ToggleAttackingThird() }

func (s *Service) SetAttackingThird(on bool) error { return s.machine.SetAttackingThird(on) }

// Record stamps and dispatches one tap.
func (s *Service) Record(ctx context.Context, teamID string, et model.EventType, key string) (recorder.Receipt, error) {
	return s.recorder.Record(ctx, teamID, et, key)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	snap := s.machine.Snapshot()
	queueLen := s.queue.Len(ctx)

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.pool.Size(),
		"queueCapacity": s.queue.Capacity(),
		"queueLength":   queueLen,
		"dedupeSize":    s.dedupeSize,
		"screen":        snap.Screen.String(),
		"clock":         snap.Clock,
		"publisher":     s.publisher != nil,
	}
	if s.deduper != nil {
		stats["dedupeKeys"] = s.deduper.Size()
	}
	if snap.Match != nil {
		stats["matchID"] = snap.Match.ID
	}

	metrics.UpdateQueueSize(queueLen)
	return stats
}
