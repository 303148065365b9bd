package repository

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Seed is a YAML roster used to populate local stores.
type Seed struct {
	Analysts    []SeedAnalyst    `yaml:"analysts"`
	Tournaments []SeedTournament `yaml:"tournaments"`
	Teams       []SeedTeam       `yaml:"teams"`
}

type SeedAnalyst struct {
	ID       string `yaml:"analyst_id"`
	Password string `yaml:"password"`
}

type SeedTournament struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedTeam struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	TournamentID string `yaml:"tournament_id"`
}

// DecodeSeed reads a seed document. Unknown keys are rejected.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, a := range seed.Analysts {
		if a.ID == "" {
			return Seed{}, fmt.Errorf("seed: analyst %d has no analyst_id", i)
		}
	}
	for i, t := range seed.Tournaments {
		if t.ID == "" {
			return Seed{}, fmt.Errorf("seed: tournament %d has no id", i)
		}
	}
	for i, t := range seed.Teams {
		if t.ID == "" {
			return Seed{}, fmt.Errorf("seed: team %d has no id", i)
		}
	}
	return seed, nil
}
