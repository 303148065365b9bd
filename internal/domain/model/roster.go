package model

import "time"

// Analyst is the operator identity held after login.
type Analyst struct {
	ID string `json:"analyst_id"`
}

// Tournament is a read-only competition.
type Tournament struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Team belongs to exactly one tournament.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TournamentID string `json:"tournament_id"`
}

// MatchStatus is the lifecycle flag stored on a match row.
type MatchStatus string

const (
	MatchLive     MatchStatus = "Live"
	MatchFinished MatchStatus = "Finished"
)

// NewMatch is what the engine sends when a match starts.
type NewMatch struct {
	TournamentID string      `json:"tournament_id"`
	TeamAID      string      `json:"team_a_id"`
	TeamBID      string      `json:"team_b_id"`
	Details      string      `json:"details"`
	StartTime    time.Time   `json:"start_time"`
	Status       MatchStatus `json:"status"`
}

// Match is a created match; ID is assigned by the store.
type Match struct {
	ID string `json:"id"`
	NewMatch
}

// HasTeam reports whether teamID is one of the two sides.
func (m Match) HasTeam(teamID string) bool {
	return teamID != "" && (teamID == m.TeamAID || teamID == m.TeamBID)
}
