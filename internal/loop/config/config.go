// Package config centralizes all tunable game parameters.
package config

import "time"

// Field dimensions in world units. The field wraps at its edges.
const (
	FieldWidth  = 400
	FieldHeight = 300
)

// Asteroid field
const (
	// FieldTarget is the weighted rock population (large=4, medium=2, small=1).
	FieldTarget       = 120
	CrystallineChance = 0.2
)

// Mining rig
const (
	BaseFireInterval = 1.0  // Seconds between volleys at mining_speed 1
	DropLifetime     = 12.0 // Seconds loot floats before it is lost
)

// Starting economy of a fresh session.
const (
	StartingMetal     = 15.0
	StartingMetalRate = 0.2 // Per second, before any upgrade
)

// Persistence
const (
	DefaultAutosaveInterval = 30 * time.Second
	SaveTimeout             = 5 * time.Second
)

// Sessions
const (
	MaxPlayerNameLength = 16
	// SessionIdleTimeout is how long a session keeps running with no client
	// attached before it is saved and unloaded.
	SessionIdleTimeout = 10 * time.Minute
)

// Shutdown
const (
	ShutdownDisplaySeconds = 5.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 25 * time.Minute
	InactivityDisconnectUser = 30 * time.Minute
)

// Client rendering
const (
	ClientTargetFPS       = 15
	ClientTargetFrameTime = time.Second / ClientTargetFPS
	// Frames larger than this are centered in the terminal.
	MaxTermWidth  = 120
	MaxTermHeight = 40
	// Below this the client shows a resize hint instead of the dashboard.
	MinTermWidth   = 60
	MinTermHeight  = 18
	MessageSeconds = 4.0 // How long intent results stay on the status line
)

// Server tick rate
const (
	ServerTickRate = 20
	ServerTickTime = time.Second / ServerTickRate
)

// Web feed
const (
	WebPushInterval = 250 * time.Millisecond
	WebIntentRate   = 5 // Messages per second per connection
	WebIntentBurst  = 10
	WebWriteTimeout = 5 * time.Second
	WebReadLimit    = 4096
	WebPongWait     = 60 * time.Second
	WebPingInterval = 50 * time.Second
)
