package tagsim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/quicktagger/pkg/logger"
)

const (
	// confirmationPoll is how often the session is polled for the toast.
	confirmationPoll = 50 * time.Millisecond

	receiptAccepted  = "accepted"
	receiptDuplicate = "duplicate"
	receiptDropped   = "dropped"
)

// ErrNoFixture is returned when the roster has no tournament with two teams.
var ErrNoFixture = errors.New("no tournament with two teams in roster")

// Run drives one full tagging session against the service and returns its stats.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get().Named("tag-sim")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting tagging simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("analyst", config.AnalystID),
		logger.Int("events", config.NumEvents),
		logger.String("scenario", config.Scenario),
		logger.Duration("interval", config.Interval),
		logger.Duration("timeout", config.Timeout))

	scenario := &Scenario{}
	if config.Scenario != "" {
		s, err := LoadScenario(config.Scenario)
		if err != nil {
			return nil, err
		}
		scenario = s
	}

	c := newClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Log in
	if _, err := c.login(ctx, config.AnalystID, config.Password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	defer func() {
		if err := c.logout(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "logout failed", logger.Error(err))
		}
	}()

	// Step 3: Configure the fixture
	roster, err := c.roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster retrieval failed: %w", err)
	}
	if err := fillFixture(scenario, roster); err != nil {
		return nil, err
	}
	if err := configure(ctx, c, scenario); err != nil {
		return nil, fmt.Errorf("match setup failed: %w", err)
	}

	// Step 4: Start the match
	snap, err := c.start(ctx)
	if err != nil {
		return nil, fmt.Errorf("match start failed: %w", err)
	}
	if snap.Match != nil {
		stats.MatchID = snap.Match.ID
	}
	log.Info(ctx, "match started", logger.String("matchID", stats.MatchID))

	// Step 5: Build the tap list
	types, err := c.eventTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("event type retrieval failed: %w", err)
	}
	events := scenario.Events
	if len(events) == 0 {
		events, err = generateEvents(config.NumEvents, types)
		if err != nil {
			return nil, fmt.Errorf("event generation failed: %w", err)
		}
	}
	stats.EventsPlanned = len(events)

	// Step 6: Tap
	expected := tapEvents(ctx, log, config, c, scenario, events, roster, types, stats)

	// Step 7: Wait for the last confirmation
	if expected != "" {
		text, err := awaitConfirmation(ctx, c, expected, config.Timeout)
		if err != nil {
			log.Warn(ctx, "confirmation not observed",
				logger.String("expected", expected), logger.Error(err))
		}
		stats.LastConfirmation = text
	}

	// Step 8: End the match
	snap, err = c.end(ctx)
	if err != nil && !isAPIError(err, "no_active_match") {
		return nil, fmt.Errorf("match end failed: %w", err)
	}
	stats.FinalClock = snap.Clock

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// fillFixture picks the first tournament with two teams for any setup field
// the scenario leaves empty.
func fillFixture(s *Scenario, roster Roster) error {
	if s.TournamentID == "" {
		for _, t := range roster.Tournaments {
			if len(teamsOf(roster, t.ID)) >= 2 {
				s.TournamentID = t.ID
				break
			}
		}
		if s.TournamentID == "" {
			return ErrNoFixture
		}
	}
	teams := teamsOf(roster, s.TournamentID)
	if s.TeamA == "" {
		for _, t := range teams {
			if t.ID != s.TeamB {
				s.TeamA = t.ID
				break
			}
		}
	}
	if s.TeamB == "" {
		for _, t := range teams {
			if t.ID != s.TeamA {
				s.TeamB = t.ID
				break
			}
		}
	}
	if s.TeamA == "" || s.TeamB == "" {
		return ErrNoFixture
	}
	return nil
}

func teamsOf(roster Roster, tournamentID string) []Team {
	var out []Team
	for _, t := range roster.Teams {
		if t.TournamentID == tournamentID {
			out = append(out, t)
		}
	}
	return out
}

func configure(ctx context.Context, c *client, s *Scenario) error {
	if err := c.choose(ctx, "tournament", s.TournamentID); err != nil {
		return err
	}
	if err := c.choose(ctx, "team-a", s.TeamA); err != nil {
		return err
	}
	if err := c.choose(ctx, "team-b", s.TeamB); err != nil {
		return err
	}
	if s.Details != "" {
		return c.details(ctx, s.Details)
	}
	return nil
}

// tapEvents sends each event in order and returns the toast text expected
// for the last accepted one.
func tapEvents(ctx context.Context, log logger.Logger, config *Config, c *client, s *Scenario,
	events []ScenarioEvent, roster Roster, types []EventType, stats *Stats,
) string {
	var expected string
	for i, e := range events {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && config.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(config.Interval):
			}
		}
		if e.AttackingThird != nil {
			if err := c.attackingThird(ctx, *e.AttackingThird); err != nil {
				log.Warn(ctx, "attacking third toggle failed", logger.Error(err))
			}
		}
		teamID := s.resolveTeam(e.Team)
		rc, err := c.record(ctx, teamID, e.Type, e.EventID)
		if err != nil {
			stats.EventsFailed++
			log.Warn(ctx, "event rejected",
				logger.Int("index", i), logger.String("team", teamID),
				logger.String("type", e.Type), logger.Error(err))
			continue
		}
		switch rc.Status {
		case receiptAccepted:
			stats.EventsAccepted++
			expected = confirmationFor(roster, types, teamID, rc.Event.EventType)
		case receiptDuplicate:
			stats.EventsDuplicate++
		case receiptDropped:
			stats.EventsDropped++
		}
		if config.Verbose {
			log.Debug(ctx, "event tapped",
				logger.Int("index", i),
				logger.String("status", rc.Status),
				logger.String("team", teamID),
				logger.String("type", rc.Event.EventType),
				logger.Bool("attackingThird", rc.Event.AttackingThird),
				logger.Int("minute", rc.Event.MatchMinute))
		}
	}
	return expected
}

// confirmationFor renders the toast the service shows for an accepted tap.
func confirmationFor(roster Roster, types []EventType, teamID, eventType string) string {
	team := "Team"
	for _, t := range roster.Teams {
		if t.ID == teamID {
			team = t.Name
			break
		}
	}
	label := eventType
	for _, t := range types {
		if t.Name == eventType {
			label = t.Label
			break
		}
	}
	return fmt.Sprintf("Logged: %s - %s", team, label)
}

// awaitConfirmation polls the session until the toast shows want or timeout elapses.
func awaitConfirmation(ctx context.Context, c *client, want string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(confirmationPoll)
	defer ticker.Stop()

	var last string
	for {
		snap, err := c.session(ctx)
		if err == nil && snap.Feedback != nil {
			last = snap.Feedback.Text
			if last == want {
				return last, nil
			}
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "tagging simulation completed",
		logger.String("matchID", stats.MatchID),
		logger.Int("planned", stats.EventsPlanned),
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("dropped", stats.EventsDropped),
		logger.Int("failed", stats.EventsFailed),
		logger.String("lastConfirmation", stats.LastConfirmation),
		logger.String("finalClock", stats.FinalClock),
		logger.Duration("duration", stats.Duration))
}
