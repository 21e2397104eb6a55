package server

import (
	"fmt"
	"time"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/progression"
)

// SessionSnapshot is an immutable view of one session for rendering.
// A new one is published every tick; readers never see it change.
type SessionSnapshot struct {
	Player    string                   `json:"player"`
	Resources economy.Snapshot         `json:"economy"`
	Stats     economy.Stats            `json:"stats"`
	Upgrades  []progression.NodeStatus `json:"upgrades"`
	Planets   []colony.Status          `json:"planets"`
	Yield     economy.Amounts          `json:"colony_yield"`
	Mining    MiningView               `json:"mining"`
	Autopilot AutopilotView            `json:"autopilot"`
	Clients   int                      `json:"clients"`
	Delta     time.Duration            `json:"-"`
}

// MiningView summarizes the rig for display.
type MiningView struct {
	ShipX     float64         `json:"ship_x"`
	ShipY     float64         `json:"ship_y"`
	Asteroids int             `json:"asteroids"`
	InRange   int             `json:"in_range"`
	Drops     int             `json:"drops"`
	Destroyed int             `json:"destroyed"`
	Mined     economy.Amounts `json:"mined"`
}

// AutopilotView tells the UI whether the toggle is usable.
type AutopilotView struct {
	Unlocked bool `json:"unlocked"`
	Engaged  bool `json:"engaged"`
}

// IntentKind identifies a player action.
type IntentKind int

const (
	IntentPurchase IntentKind = iota
	IntentColonize
	IntentToggleAutopilot
	IntentReset
)

func (k IntentKind) String() string {
	switch k {
	case IntentPurchase:
		return "purchase"
	case IntentColonize:
		return "colonize"
	case IntentToggleAutopilot:
		return "autopilot"
	case IntentReset:
		return "reset"
	}
	return "unknown"
}

// Intent is a player action queued for the next tick.
type Intent struct {
	Kind   IntentKind
	Target string // Upgrade or planet id
}

// String renders the intent for log output.
func (in Intent) String() string {
	if in.Target == "" {
		return in.Kind.String()
	}
	return fmt.Sprintf("%s %s", in.Kind, in.Target)
}

// ClientIntent is an intent from a specific client.
type ClientIntent struct {
	ClientID int
	Intent   Intent
}

// ClientEvent is sent from the server to a client.
type ClientEvent struct {
	Type   ClientEventType
	Intent Intent
	Err    error // Set on EventIntentResult when the intent failed
}

// ClientEventType identifies the type of client event.
type ClientEventType int

const (
	EventIntentResult ClientEventType = iota
	EventServerShutdown
)
