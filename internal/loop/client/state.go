package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/input"
	"github.com/tomz197/asteroid-idle/internal/loop/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
	"github.com/tomz197/asteroid-idle/internal/progression"
)

// GameState represents the current screen for a client.
type GameState int

const (
	GameStateStart        GameState = iota // Title screen
	GameStatePlaying                       // Dashboard
	GameStateConfirmReset                  // Waiting for y/n before wiping progress
	GameStateShutdown                      // Server is shutting down
)

// Panel is the dashboard list that has focus.
type Panel int

const (
	PanelUpgrades Panel = iota
	PanelPlanets
	panelCount
)

// ClientState holds per-connection UI state. Game state lives on the server.
type ClientState struct {
	GameState GameState
	Panel     Panel
	Cursor    [panelCount]int // Selected row per panel

	Message      string
	MessageErr   bool
	messageTimer float64

	Running       bool
	delta         time.Duration
	shutdownTimer float64 // Countdown before auto-disconnect on shutdown
	isInactive    bool
	prevGameState GameState
	wasInactive   bool
}

// NewClientState creates a new initialized client state.
func NewClientState() *ClientState {
	return &ClientState{
		GameState: GameStateStart,
		Running:   true,
	}
}

// HandleInput applies one frame of key presses and returns the intents to
// send. snap may be nil before the first server tick.
func (s *ClientState) HandleInput(in input.Input, snap *server.SessionSnapshot) []server.Intent {
	var intents []server.Intent
	for _, ev := range in.Events {
		if ev.Key == input.KeyRune && ev.Rune == 'q' && s.GameState != GameStateConfirmReset {
			s.Running = false
			return intents
		}

		switch s.GameState {
		case GameStateStart:
			if ev.Key == input.KeyEnter || ev.Key == input.KeySpace {
				s.GameState = GameStatePlaying
			}
		case GameStateConfirmReset:
			switch {
			case ev.Key == input.KeyRune && ev.Rune == 'y':
				intents = append(intents, server.Intent{Kind: server.IntentReset})
				s.GameState = GameStatePlaying
				s.Cursor = [panelCount]int{}
			case ev.Key == input.KeyRune && ev.Rune == 'n', ev.Key == input.KeyEscape, ev.Key == input.KeyRune && ev.Rune == 'q':
				s.GameState = GameStatePlaying
			}
		case GameStatePlaying:
			if intent, ok := s.handlePlaying(ev, snap); ok {
				intents = append(intents, intent)
			}
		}
	}
	return intents
}

func (s *ClientState) handlePlaying(ev input.Event, snap *server.SessionSnapshot) (server.Intent, bool) {
	switch ev.Key {
	case input.KeyUp:
		s.moveCursor(-1, snap)
	case input.KeyDown:
		s.moveCursor(1, snap)
	case input.KeyLeft, input.KeyRight:
		s.Panel = (s.Panel + 1) % panelCount
		s.clampCursor(snap)
	case input.KeyEnter, input.KeySpace:
		return s.selected(snap)
	case input.KeyRune:
		switch ev.Rune {
		case 'p':
			return server.Intent{Kind: server.IntentToggleAutopilot}, true
		case 'r':
			s.GameState = GameStateConfirmReset
		}
	}
	return server.Intent{}, false
}

// selected returns the buy or colonize intent for the highlighted row.
func (s *ClientState) selected(snap *server.SessionSnapshot) (server.Intent, bool) {
	if snap == nil {
		return server.Intent{}, false
	}
	i := s.Cursor[s.Panel]
	switch s.Panel {
	case PanelUpgrades:
		if i < len(snap.Upgrades) {
			return server.Intent{Kind: server.IntentPurchase, Target: string(snap.Upgrades[i].ID)}, true
		}
	case PanelPlanets:
		if i < len(snap.Planets) {
			return server.Intent{Kind: server.IntentColonize, Target: string(snap.Planets[i].ID)}, true
		}
	}
	return server.Intent{}, false
}

func (s *ClientState) moveCursor(delta int, snap *server.SessionSnapshot) {
	s.Cursor[s.Panel] += delta
	s.clampCursor(snap)
}

func (s *ClientState) clampCursor(snap *server.SessionSnapshot) {
	n := panelLen(s.Panel, snap)
	c := &s.Cursor[s.Panel]
	if *c >= n {
		*c = n - 1
	}
	if *c < 0 {
		*c = 0
	}
}

func panelLen(p Panel, snap *server.SessionSnapshot) int {
	if snap == nil {
		return 0
	}
	if p == PanelPlanets {
		return len(snap.Planets)
	}
	return len(snap.Upgrades)
}

// HandleEvent applies a server event.
func (s *ClientState) HandleEvent(ev server.ClientEvent) {
	switch ev.Type {
	case server.EventServerShutdown:
		s.GameState = GameStateShutdown
		s.shutdownTimer = config.ShutdownDisplaySeconds
	case server.EventIntentResult:
		s.setMessage(resultMessage(ev.Intent, ev.Err), ev.Err != nil)
	}
}

func (s *ClientState) setMessage(msg string, isErr bool) {
	s.Message = msg
	s.MessageErr = isErr
	s.messageTimer = config.MessageSeconds
}

// tick advances timers by the frame delta.
func (s *ClientState) tick(d time.Duration) {
	s.delta = d
	if s.messageTimer > 0 {
		s.messageTimer -= d.Seconds()
		if s.messageTimer <= 0 {
			s.Message = ""
		}
	}
	if s.GameState == GameStateShutdown {
		s.shutdownTimer -= d.Seconds()
		if s.shutdownTimer <= 0 {
			s.Running = false
		}
	}
}

// resultMessage phrases an intent outcome for the status line.
func resultMessage(in server.Intent, err error) string {
	if err == nil {
		switch in.Kind {
		case server.IntentPurchase:
			return fmt.Sprintf("Purchased %s", in.Target)
		case server.IntentColonize:
			return fmt.Sprintf("Colony established on %s", in.Target)
		case server.IntentToggleAutopilot:
			return "Autopilot toggled"
		case server.IntentReset:
			return "Progress reset"
		}
		return in.String()
	}

	switch {
	case errors.Is(err, progression.ErrInsufficientResources):
		return fmt.Sprintf("Not enough resources for %s", in.Target)
	case errors.Is(err, progression.ErrPrerequisiteUnmet):
		return fmt.Sprintf("%s is locked", in.Target)
	case errors.Is(err, progression.ErrAlreadyPurchased):
		return fmt.Sprintf("%s is already purchased", in.Target)
	case errors.Is(err, colony.ErrAlreadyColonized):
		return fmt.Sprintf("%s is already colonized", in.Target)
	case errors.Is(err, server.ErrAutopilotLocked):
		return "Autopilot is not unlocked yet"
	}
	return fmt.Sprintf("%s failed: %v", in, err)
}
