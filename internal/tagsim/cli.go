package tagsim

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/quicktagger/pkg/logger"
)

// SetupLogging initializes the global logger for the simulator.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithConsole(true)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	logger.Get().Debug(context.Background(), "verbose logging enabled")
	return nil
}

// ShowHelp prints usage information for the tagging simulator.
func ShowHelp() {
	os.Stdout.WriteString(`QuickTagger Session Simulator
=============================

Drives one tagging session end-to-end: login, match setup, start, taps,
end, logout. Prints a summary of accepted, duplicate, dropped and failed taps.

Usage:
  go run ./cmd/tag-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -analyst string
        Analyst id to log in as (default "demo")
  -password string
        Analyst password (default "demo")
  -events int
        Number of random taps when no scenario events are given (default 20)
  -scenario string
        YAML file with tournament_id, team_a, team_b, details and events
  -interval duration
        Pause between taps (default 250ms)
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every tap
  -help
        Show this help message

Scenario file:
  tournament_id: "1"
  team_a: "11"
  team_b: "12"
  details: "Round 3"
  events:
    - {team: a, type: Goal}
    - {team: b, type: ShotOnTarget, attacking_third: true}
    - {team: a, type: "Successful Pass", event_id: "tap-3"}

Examples:
  # Twenty random taps against a local service
  go run ./cmd/tag-sim

  # Replay a scripted session
  go run ./cmd/tag-sim -scenario session.yaml -interval 1s -verbose
`)
}
