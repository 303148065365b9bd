// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEventType is returned when a string does not name an EventType.
var ErrUnknownEventType = errors.New("unknown event type")

// Category groups event types the way the tagging pad does.
type Category int

const (
	CategoryPass Category = iota + 1
	CategoryShot
	CategoryDisciplinary
)

func (c Category) String() string {
	switch c {
	case CategoryPass:
		return "pass"
	case CategoryShot:
		return "shot"
	case CategoryDisciplinary:
		return "disciplinary"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the category by name.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// EventType is the closed set of actions an operator can log.
type EventType int

const (
	SuccessfulPass EventType = iota + 1
	MissedPass
	InterceptedPass
	Shot
	ShotOnTarget
	Goal
	YellowCard
	RedCard
	Tackle
	Foul
)

type eventTypeInfo struct {
	name     string
	label    string
	category Category
	// aliases are the button captions older clients send.
	aliases []string
}

var eventTypes = map[EventType]eventTypeInfo{
	SuccessfulPass:  {"SuccessfulPass", "Successful Pass", CategoryPass, nil},
	MissedPass:      {"MissedPass", "Missed Pass", CategoryPass, nil},
	InterceptedPass: {"InterceptedPass", "Intercepted Pass", CategoryPass, nil},
	Shot:            {"Shot", "Shot", CategoryShot, nil},
	ShotOnTarget:    {"ShotOnTarget", "Shot on Target", CategoryShot, []string{"SoT"}},
	Goal:            {"Goal", "Goal", CategoryShot, nil},
	YellowCard:      {"YellowCard", "Yellow Card", CategoryDisciplinary, nil},
	RedCard:         {"RedCard", "Red Card", CategoryDisciplinary, nil},
	Tackle:          {"Tackle", "Tackle", CategoryDisciplinary, nil},
	Foul:            {"Foul", "Foul", CategoryDisciplinary, nil},
}

var eventTypesByKey = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypes)*3)
	for t, info := range eventTypes {
		m[strings.ToLower(info.name)] = t
		m[strings.ToLower(info.label)] = t
		for _, a := range info.aliases {
			m[strings.ToLower(a)] = t
		}
	}
	return m
}()

// EventTypes lists every event type in pad order.
func EventTypes() []EventType {
	return []EventType{
		SuccessfulPass, MissedPass, InterceptedPass,
		Shot, ShotOnTarget, Goal,
		YellowCard, RedCard, Tackle, Foul,
	}
}

// ParseEventType accepts the wire name ("ShotOnTarget"), the label
// ("Shot on Target") or a legacy caption ("SoT"), case-insensitively.
func ParseEventType(s string) (EventType, error) {
	if t, ok := eventTypesByKey[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

// Valid reports whether t is a member of the enumeration.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// String returns the wire name stored in the events table.
func (t EventType) String() string {
	if info, ok := eventTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Label is the operator facing caption.
func (t EventType) Label() string {
	return eventTypes[t].label
}

// Category returns the pad group of t.
func (t EventType) Category() Category {
	return eventTypes[t].category
}

func (t EventType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventType, int(t))
	}
	return json.Marshal(t.String())
}

func (t *EventType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseEventType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is one tagged action. Fields mirror the events table.
type Event struct {
	MatchID        string    `json:"match_id"`
	TeamID         string    `json:"team_id"`
	Type           EventType `json:"event_type"`
	AttackingThird bool      `json:"is_attacking_3rd"`
	MatchMinute    int       `json:"match_minute"`
}
