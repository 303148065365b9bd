// Package session implements the tagging session state machine:
// Unauthenticated -> Configuring -> Tagging, and back.
//
// The Machine is the only writer of session state. Every trigger runs as one
// critical section; calls to the persistence service happen outside it and
// their results are applied only if the session has not moved on meanwhile.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/quicktagger/internal/domain/clock"
	"github.com/okian/quicktagger/internal/domain/feedback"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
)

const (
	defaultCloseTimeout = 10 * time.Second
	unknownTeamName     = "Team"
)

// Store is the part of the persistence service the machine talks to.
type Store interface {
	VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error)
	CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error)
	UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error
}

// Roster is the cached setup data.
type Roster interface {
	Refresh(ctx context.Context) error
	Tournament(id string) (model.Tournament, bool)
	Team(id string) (model.Team, bool)
	TeamsIn(tournamentID string, exclude ...string) []model.Team
}

// Selection is the match being configured.
type Selection struct {
	TournamentID string `json:"tournament_id"`
	TeamAID      string `json:"team_a_id"`
	TeamBID      string `json:"team_b_id"`
	Details      string `json:"details"`
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	Screen         Screen            `json:"screen"`
	AnalystID      string            `json:"analyst_id,omitempty"`
	Selection      Selection         `json:"selection"`
	Ready          bool              `json:"ready"`
	Starting       bool              `json:"starting"`
	Match          *model.Match      `json:"match,omitempty"`
	Seconds        int               `json:"seconds"`
	Clock          string            `json:"clock"`
	MatchMinute    int               `json:"match_minute"`
	AttackingThird bool              `json:"attacking_third"`
	Feedback       *feedback.Message `json:"feedback,omitempty"`
	Epoch          uint64            `json:"epoch"`
}

// Candidates are the teams selectable for each side.
type Candidates struct {
	TeamA []model.Team `json:"team_a"`
	TeamB []model.Team `json:"team_b"`
}

// Stamp is an event composed from the session at the moment of the tap.
type Stamp struct {
	Event    model.Event
	TeamName string
	Epoch    uint64
}

// Machine owns the session, its clock and its feedback channel.
type Machine struct {
	store        Store
	roster       Roster
	clock        *clock.Clock
	feedback     *feedback.Channel
	clk          clockwork.Clock
	logger       logger.Logger
	closeTimeout time.Duration

	mu        sync.Mutex
	screen    Screen
	analystID string
	sel       Selection
	match     *model.Match
	attacking bool
	starting  bool
	epoch     uint64

	obsMu     sync.RWMutex
	observers []func(Snapshot)
	changed   chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
	notifier  sync.WaitGroup

	pending sync.WaitGroup
}

// New creates a machine in the Unauthenticated screen.
func New(store Store, r Roster, opts ...Option) *Machine {
	m := &Machine{
		store:        store,
		roster:       r,
		clk:          clockwork.NewRealClock(),
		closeTimeout: defaultCloseTimeout,
		changed:      make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("session")
	}
	if m.clock == nil {
		m.clock = clock.New(clock.WithClock(m.clk))
	}
	if m.feedback == nil {
		m.feedback = feedback.New(feedback.WithClock(m.clk))
	}

	m.clock.OnTick(func(seconds int) {
		metrics.UpdateClockSeconds(seconds)
		m.signal()
	})
	m.feedback.OnChange(func(feedback.Message, bool) { m.signal() })

	m.notifier.Add(1)
	go m.notifyLoop()
	return m
}

// Close stops the clock and the observer loop, and waits for pending
// background writes.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		m.clock.Stop()
		close(m.quit)
	})
	m.notifier.Wait()
	m.pending.Wait()
}

// Wait blocks until background match status updates have finished.
func (m *Machine) Wait() {
	m.pending.Wait()
}

// Observe registers fn to receive snapshots after state changes. Rapid
// changes are coalesced; fn always sees the latest state.
func (m *Machine) Observe(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	m.obsMu.Lock()
	m.observers = append(m.observers, fn)
	m.obsMu.Unlock()
}

func (m *Machine) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *Machine) notifyLoop() {
	defer m.notifier.Done()
	for {
		select {
		case <-m.quit:
			return
		case <-m.changed:
			snap := m.Snapshot()
			m.obsMu.RLock()
			observers := append([]func(Snapshot){}, m.observers...)
			m.obsMu.RUnlock()
			for _, fn := range observers {
				fn(snap)
			}
		}
	}
}

// Clock exposes the match clock.
func (m *Machine) Clock() *clock.Clock { return m.clock }

// Feedback exposes the toast channel.
func (m *Machine) Feedback() *feedback.Channel { return m.feedback }

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	seconds := m.clock.Seconds()
	s := Snapshot{
		Screen:         m.screen,
		AnalystID:      m.analystID,
		Selection:      m.sel,
		Ready:          m.readyLocked(),
		Starting:       m.starting,
		Seconds:        seconds,
		Clock:          clock.Format(seconds),
		MatchMinute:    clock.Minute(seconds),
		AttackingThird: m.attacking,
		Epoch:          m.epoch,
	}
	if m.match != nil {
		cp := *m.match
		s.Match = &cp
	}
	if msg, ok := m.feedback.Current(); ok {
		s.Feedback = &msg
	}
	return s
}

// Screen returns the current screen.
func (m *Machine) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

// Epoch identifies the current login session.
func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

func (m *Machine) transitionLocked(to Screen) {
	m.screen = to
	metrics.RecordSessionTransition(to.String())
}

// Login verifies the analyst and enters Configuring. The roster is refreshed
// before Login returns; a failed refresh is logged and otherwise ignored.
func (m *Machine) Login(ctx context.Context, analystID, password string) error {
	m.mu.Lock()
	if m.screen != Unauthenticated {
		m.mu.Unlock()
		return fmt.Errorf("%w: already logged in", ErrInvalidTransition)
	}
	m.mu.Unlock()

	analyst, err := m.store.VerifyAnalyst(ctx, analystID, password)
	if err != nil {
		metrics.RecordLoginFailure()
		m.logger.Info(ctx, "login rejected", logger.String("analyst_id", analystID), logger.Error(err))
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	m.mu.Lock()
	if m.screen != Unauthenticated {
		m.mu.Unlock()
		return fmt.Errorf("%w: already logged in", ErrInvalidTransition)
	}
	m.epoch++
	m.analystID = analyst.ID
	if m.analystID == "" {
		m.analystID = analystID
	}
	m.sel = Selection{}
	m.transitionLocked(Configuring)
	m.mu.Unlock()
	m.signal()

	m.logger.Info(ctx, "analyst logged in", logger.String("analyst_id", analystID))
	m.refreshRoster(ctx)
	return nil
}

// Logout discards everything and returns to Unauthenticated. A running match
// is abandoned locally; its remote status is left untouched.
func (m *Machine) Logout(ctx context.Context) {
	m.mu.Lock()
	if m.screen == Unauthenticated {
		m.mu.Unlock()
		return
	}
	if m.match != nil {
		m.logger.Warn(ctx, "logging out with an active match", logger.String("match_id", m.match.ID))
	}
	m.epoch++
	m.analystID = ""
	m.sel = Selection{}
	m.match = nil
	m.attacking = false
	m.starting = false
	m.clock.Reset()
	m.feedback.Clear()
	m.transitionLocked(Unauthenticated)
	m.mu.Unlock()
	m.signal()
}

func (m *Machine) refreshRoster(ctx context.Context) {
	// failures are logged by the cache and leave the stale half in place
	_ = m.roster.Refresh(ctx)
	m.signal()
}

// RefreshRoster reloads the roster while configuring.
func (m *Machine) RefreshRoster(ctx context.Context) error {
	m.mu.Lock()
	screen := m.screen
	m.mu.Unlock()
	if screen == Unauthenticated {
		return fmt.Errorf("%w: not logged in", ErrInvalidTransition)
	}
	m.refreshRoster(ctx)
	return nil
}

func (m *Machine) configuringLocked() error {
	if m.screen != Configuring {
		return fmt.Errorf("%w: setup is only editable while configuring (screen=%s)", ErrInvalidTransition, m.screen)
	}
	if m.starting {
		return ErrMatchStarting
	}
	return nil
}

// SelectTournament picks the tournament and clears both team selections.
// An empty id clears the tournament.
func (m *Machine) SelectTournament(tournamentID string) error {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if err := m.configuringLocked(); err != nil {
		return err
	}
	if tournamentID != "" {
		if _, ok := m.roster.Tournament(tournamentID); !ok {
			return fmt.Errorf("%w: unknown tournament %q", ErrInvalidSelection, tournamentID)
		}
	}
	m.sel.TournamentID = tournamentID
	m.sel.TeamAID = ""
	m.sel.TeamBID = ""
	return nil
}

// SelectTeamA picks the first side. It must belong to the selected
// tournament; team B is cleared if it is the same team.
func (m *Machine) SelectTeamA(teamID string) error {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if err := m.configuringLocked(); err != nil {
		return err
	}
	if teamID != "" && !m.inTournamentLocked(teamID) {
		return fmt.Errorf("%w: team %q is not in the selected tournament", ErrInvalidSelection, teamID)
	}
	m.sel.TeamAID = teamID
	if m.sel.TeamBID == teamID {
		m.sel.TeamBID = ""
	}
	return nil
}

// SelectTeamB picks the second side from the team B candidates.
func (m *Machine) SelectTeamB(teamID string) error {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if err := m.configuringLocked(); err != nil {
		return err
	}
	if teamID == "" {
		m.sel.TeamBID = ""
		return nil
	}
	if m.sel.TeamAID == "" {
		return fmt.Errorf("%w: select team A first", ErrInvalidSelection)
	}
	for _, t := range m.teamBCandidatesLocked() {
		if t.ID == teamID {
			m.sel.TeamBID = teamID
			return nil
		}
	}
	return fmt.Errorf("%w: team %q is not a team B candidate", ErrInvalidSelection, teamID)
}

// SetDetails sets the free-text match description.
func (m *Machine) SetDetails(details string) error {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if err := m.configuringLocked(); err != nil {
		return err
	}
	m.sel.Details = details
	return nil
}

// Candidates returns the selectable teams for each side.
func (m *Machine) Candidates() Candidates {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Candidates{
		TeamA: m.roster.TeamsIn(m.sel.TournamentID),
		TeamB: m.teamBCandidatesLocked(),
	}
	return c
}

func (m *Machine) teamBCandidatesLocked() []model.Team {
	if m.sel.TeamAID == "" {
		return []model.Team{}
	}
	return m.roster.TeamsIn(m.sel.TournamentID, m.sel.TeamAID)
}

func (m *Machine) inTournamentLocked(teamID string) bool {
	t, ok := m.roster.Team(teamID)
	return ok && m.sel.TournamentID != "" && t.TournamentID == m.sel.TournamentID
}

// Ready reports whether a match can be started.
func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyLocked()
}

func (m *Machine) readyLocked() bool {
	return m.screen == Configuring &&
		m.sel.TournamentID != "" &&
		m.sel.TeamAID != "" &&
		m.sel.TeamBID != "" &&
		m.sel.TeamAID != m.sel.TeamBID
}

// StartMatch creates a Live match from the selection and enters Tagging with
// the clock at zero and the attacking third flag off. When setup is
// incomplete it returns ErrNotReady without contacting the store. A store
// failure returns ErrMatchCreation and keeps the selection.
func (m *Machine) StartMatch(ctx context.Context) (model.Match, error) {
	m.mu.Lock()
	if err := m.configuringLocked(); err != nil {
		m.mu.Unlock()
		return model.Match{}, err
	}
	if !m.readyLocked() {
		m.mu.Unlock()
		return model.Match{}, ErrNotReady
	}
	m.starting = true
	epoch := m.epoch
	req := model.NewMatch{
		TournamentID: m.sel.TournamentID,
		TeamAID:      m.sel.TeamAID,
		TeamBID:      m.sel.TeamBID,
		Details:      m.sel.Details,
		StartTime:    m.clk.Now().UTC(),
		Status:       model.MatchLive,
	}
	m.mu.Unlock()
	m.signal()

	created, err := m.store.CreateMatch(ctx, req)

	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		if err == nil {
			m.logger.Warn(ctx, "match created after the session ended, leaving it live",
				logger.String("match_id", created.ID))
		}
		return model.Match{}, ErrSessionChanged
	}
	m.starting = false
	if err != nil {
		metrics.RecordMatchStartFailure()
		m.logger.Error(ctx, "match creation failed", logger.Error(err))
		return model.Match{}, fmt.Errorf("%w: %v", ErrMatchCreation, err)
	}

	// the store echoes the row; fill what it left out
	if created.TournamentID == "" {
		created.NewMatch = req
	}
	m.match = &created
	m.attacking = false
	m.clock.Start()
	m.transitionLocked(Tagging)
	metrics.RecordMatchStarted()
	m.logger.Info(ctx, "match started",
		logger.String("match_id", created.ID),
		logger.String("team_a_id", created.TeamAID),
		logger.String("team_b_id", created.TeamBID),
	)
	return created, nil
}

// EndMatch stops the clock, clears the active match and returns to
// Configuring immediately. The Finished status is written in the background;
// a failure there is logged only. The roster is refreshed before returning.
func (m *Machine) EndMatch(ctx context.Context) error {
	m.mu.Lock()
	if m.screen != Tagging || m.match == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: no match is being tagged", ErrInvalidTransition)
	}
	ended := *m.match
	m.match = nil
	m.attacking = false
	m.clock.Reset()
	m.transitionLocked(Configuring)
	m.mu.Unlock()
	m.signal()

	metrics.RecordMatchEnded()
	metrics.UpdateClockSeconds(0)

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.closeTimeout)
		defer cancel()
		if err := m.store.UpdateMatchStatus(cctx, ended.ID, model.MatchFinished); err != nil {
			metrics.RecordMatchCloseFailure()
			m.logger.Error(cctx, "failed to mark match finished",
				logger.String("match_id", ended.ID), logger.Error(err))
			return
		}
		m.logger.Info(cctx, "match finished", logger.String("match_id", ended.ID))
	}()

	m.refreshRoster(ctx)
	return nil
}

// ToggleAttackingThird flips the modifier and returns the new value.
func (m *Machine) ToggleAttackingThird() (bool, error) {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if m.screen != Tagging {
		return false, ErrNoActiveMatch
	}
	m.attacking = !m.attacking
	return m.attacking, nil
}

// SetAttackingThird sets the modifier.
func (m *Machine) SetAttackingThird(on bool) error {
	m.mu.Lock()
	defer m.signal()
	defer m.mu.Unlock()

	if m.screen != Tagging {
		return ErrNoActiveMatch
	}
	m.attacking = on
	return nil
}

// Stamp composes an event for teamID from the current clock and modifier.
func (m *Machine) Stamp(teamID string, et model.EventType) (Stamp, error) {
	if !et.Valid() {
		return Stamp{}, fmt.Errorf("%w: %d", model.ErrUnknownEventType, int(et))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen != Tagging || m.match == nil {
		return Stamp{}, ErrNoActiveMatch
	}
	if !m.match.HasTeam(teamID) {
		return Stamp{}, fmt.Errorf("%w: %q", ErrUnknownTeam, teamID)
	}

	name := unknownTeamName
	if t, ok := m.roster.Team(teamID); ok && t.Name != "" {
		name = t.Name
	}
	return Stamp{
		Event: model.Event{
			MatchID:        m.match.ID,
			TeamID:         teamID,
			Type:           et,
			AttackingThird: m.attacking,
			MatchMinute:    clock.Minute(m.clock.Seconds()),
		},
		TeamName: name,
		Epoch:    m.epoch,
	}, nil
}

// Confirm shows text on the feedback channel if the login session that
// recorded it is still current. It reports whether the text was shown.
func (m *Machine) Confirm(epoch uint64, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch || m.screen == Unauthenticated {
		return false
	}
	m.feedback.Publish(text)
	return true
}
