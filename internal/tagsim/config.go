package tagsim

import "time"

// Config holds configuration for a simulated session.
type Config struct {
	BaseURL   string        // Base URL of the service
	AnalystID string        // Analyst to log in as
	Password  string        // Analyst password
	NumEvents int           // Random events to tag when the scenario lists none
	Scenario  string        // Optional YAML scenario file
	Interval  time.Duration // Pause between taps
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	MatchID          string
	EventsPlanned    int
	EventsAccepted   int
	EventsDuplicate  int
	EventsDropped    int
	EventsFailed     int
	LastConfirmation string
	FinalClock       string
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// Team mirrors the roster entries served by the API.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TournamentID string `json:"tournament_id"`
}

// Tournament mirrors the roster entries served by the API.
type Tournament struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster is the body of GET /api/roster.
type Roster struct {
	Tournaments []Tournament `json:"tournaments"`
	Teams       []Team       `json:"teams"`
}

// EventType is one entry of GET /api/event-types.
type EventType struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Snapshot is the subset of the session the simulator checks.
type Snapshot struct {
	Screen string `json:"screen"`
	Clock  string `json:"clock"`
	Match  *struct {
		ID string `json:"id"`
	} `json:"match"`
	AttackingThird bool `json:"attacking_third"`
	Feedback       *struct {
		Text string `json:"text"`
	} `json:"feedback"`
}

// Receipt is the body of POST /api/match/events.
type Receipt struct {
	Status string `json:"status"`
	Event  struct {
		MatchID        string `json:"match_id"`
		TeamID         string `json:"team_id"`
		EventType      string `json:"event_type"`
		AttackingThird bool   `json:"is_attacking_3rd"`
		MatchMinute    int    `json:"match_minute"`
	} `json:"event"`
}
