package tagsim

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a session. Empty setup fields are filled from the roster.
type Scenario struct {
	TournamentID string          `yaml:"tournament_id"`
	TeamA        string          `yaml:"team_a"`
	TeamB        string          `yaml:"team_b"`
	Details      string          `yaml:"details"`
	Events       []ScenarioEvent `yaml:"events"`
}

// ScenarioEvent is one scripted tap. Team is "a", "b" or a team id.
type ScenarioEvent struct {
	Team           string `yaml:"team"`
	Type           string `yaml:"type"`
	AttackingThird *bool  `yaml:"attacking_third,omitempty"`
	EventID        string `yaml:"event_id,omitempty"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return DecodeScenario(f)
}

// DecodeScenario parses a YAML scenario and rejects unknown fields.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	for i, e := range s.Events {
		if strings.TrimSpace(e.Type) == "" {
			return nil, fmt.Errorf("scenario event %d: type is required", i)
		}
	}
	return &s, nil
}

// resolveTeam maps "a"/"b" to the configured team ids.
func (s *Scenario) resolveTeam(team string) string {
	switch strings.ToLower(strings.TrimSpace(team)) {
	case "", "a":
		return s.TeamA
	case "b":
		return s.TeamB
	default:
		return team
	}
}

// generateEvents builds n random taps over both teams and the given types.
func generateEvents(n int, types []EventType) ([]ScenarioEvent, error) {
	if len(types) == 0 {
		return nil, errors.New("no event types to pick from")
	}
	events := make([]ScenarioEvent, 0, n)
	for i := 0; i < n; i++ {
		t, err := randomInt(len(types))
		if err != nil {
			return nil, err
		}
		side, err := randomInt(2)
		if err != nil {
			return nil, err
		}
		events = append(events, ScenarioEvent{
			Team: []string{"a", "b"}[side],
			Type: types[t].Name,
		})
	}
	return events, nil
}

func randomInt(limit int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(n.Int64()), nil
}
