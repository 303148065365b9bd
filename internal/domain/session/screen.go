package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Screen is the state of the session machine.
type Screen int

const (
	Unauthenticated Screen = iota
	Configuring
	Tagging
)

func (s Screen) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Configuring:
		return "configuring"
	case Tagging:
		return "tagging"
	default:
		return fmt.Sprintf("Screen(%d)", int(s))
	}
}

func (s Screen) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Screen) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "unauthenticated":
		*s = Unauthenticated
	case "configuring":
		*s = Configuring
	case "tagging":
		*s = Tagging
	default:
		return fmt.Errorf("unknown screen %q", name)
	}
	return nil
}
