package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/mining"
	"github.com/tomz197/asteroid-idle/internal/persistence"
	"github.com/tomz197/asteroid-idle/internal/progression"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// ErrAutopilotLocked is returned when toggling autopilot before any
// purchased upgrade provides it.
var ErrAutopilotLocked = errors.New("autopilot not unlocked")

// Session is the game of one player: its own engine, colonies, mining rig
// and save slot. Sessions share nothing, so players never affect each other.
type Session struct {
	player   string
	engine   *progression.Engine
	colonies *colony.Registry
	miner    *mining.Miner
	adapter  *persistence.Adapter
	autosave *persistence.Autosaver
	logger   *log.Logger

	miningCfg mining.Config
	rng       *rand.Rand

	// Guarded by Server.sessMu.
	clients   int
	idleSince time.Time

	// Loop goroutine only.
	destroyed int
	mined     economy.Amounts

	snapshot atomic.Pointer[SessionSnapshot]
}

func slotFor(player string) string {
	return "player:" + player
}

// newSession builds a session for player and restores its save, if any.
func (s *Server) newSession(ctx context.Context, player string) (*Session, error) {
	logger := s.logger.With("player", player)

	colonies, err := colony.NewRegistry(s.planets)
	if err != nil {
		return nil, fmt.Errorf("new session %s: %w", player, err)
	}
	engine := progression.New(s.catalog,
		progression.WithDefaults(s.defaults),
		progression.WithLogger(logger),
	)
	adapter := persistence.NewAdapter(engine, s.store, slotFor(player),
		persistence.WithColonies(colonies),
		persistence.WithLogger(logger),
	)
	// Failures are logged by the adapter and leave the defaults in place.
	_ = adapter.Load(ctx)

	rng := rand.New(rand.NewSource(s.seed()))
	sess := &Session{
		player:    player,
		engine:    engine,
		colonies:  colonies,
		miner:     mining.NewMiner(s.miningCfg, rng),
		adapter:   adapter,
		autosave:  persistence.NewAutosaver(adapter, s.autosaveInterval),
		logger:    logger,
		miningCfg: s.miningCfg,
		rng:       rng,
		mined:     economy.Amounts{},
	}
	sess.publish(0, 0)
	return sess, nil
}

// Player returns the session's player name.
func (sess *Session) Player() string { return sess.player }

// Engine returns the session's progression engine.
func (sess *Session) Engine() *progression.Engine { return sess.engine }

// Snapshot returns the latest published view.
func (sess *Session) Snapshot() *SessionSnapshot { return sess.snapshot.Load() }

// update advances the session by dt: passive income, colony yield, mining,
// then maybe an autosave.
func (sess *Session) update(ctx context.Context, dt time.Duration) {
	sess.engine.Tick(dt)
	if err := sess.colonies.Tick(dt, sess.engine); err != nil {
		sess.logger.Warn("colony yield failed", "err", err)
	}

	rep, err := sess.miner.Update(dt, sess.engine.Stats(), sess.engine)
	if err != nil {
		sess.logger.Warn("mining credit failed", "err", err)
	}
	sess.destroyed += rep.Destroyed
	for k, v := range rep.Collected {
		sess.mined[k] += v
	}

	sess.autosave.Maybe(ctx)
}

// apply executes one player intent.
func (sess *Session) apply(ctx context.Context, in Intent) error {
	switch in.Kind {
	case IntentPurchase:
		return sess.engine.Purchase(upgrade.ID(in.Target))
	case IntentColonize:
		return sess.colonies.Colonize(colony.ID(in.Target), sess.engine)
	case IntentToggleAutopilot:
		if !sess.autopilotUnlocked() {
			return ErrAutopilotLocked
		}
		v := 1.0
		if sess.engine.Stats().AutopilotEnabled() {
			v = 0
		}
		return sess.engine.SetStat(economy.Autopilot, v)
	case IntentReset:
		// Let in-flight autosaves land before the slot is deleted.
		sess.autosave.Wait()
		err := sess.adapter.Reset(ctx)
		sess.miner = mining.NewMiner(sess.miningCfg, sess.rng)
		sess.destroyed = 0
		sess.mined = economy.Amounts{}
		return err
	}
	return fmt.Errorf("unknown intent %d", in.Kind)
}

// autopilotUnlocked reports whether a purchased upgrade writes the
// autopilot flag.
func (sess *Session) autopilotUnlocked() bool {
	for _, n := range sess.engine.Catalog().Nodes() {
		if n.Effect.Touches(economy.Autopilot) && sess.engine.Purchased(n.ID) {
			return true
		}
	}
	return false
}

// publish stores a fresh immutable snapshot.
func (sess *Session) publish(clients int, dt time.Duration) {
	stats := sess.engine.Stats()

	x, y := sess.miner.Position()
	field := sess.miner.Field()
	snap := &SessionSnapshot{
		Player:    sess.player,
		Resources: sess.engine.Resources(),
		Stats:     stats,
		Upgrades:  sess.engine.Nodes(),
		Planets:   sess.colonies.Planets(),
		Yield:     sess.colonies.Yield(),
		Mining: MiningView{
			ShipX:     x,
			ShipY:     y,
			Asteroids: field.Len(),
			InRange:   len(field.Nearest(x, y, stats.AttackRange(), field.Len())),
			Drops:     len(sess.miner.Drops()),
			Destroyed: sess.destroyed,
			Mined:     sess.mined.Clone(),
		},
		Autopilot: AutopilotView{
			Unlocked: sess.autopilotUnlocked(),
			Engaged:  stats.AutopilotEnabled(),
		},
		Clients: clients,
		Delta:   dt,
	}
	sess.snapshot.Store(snap)
}

// close waits for background saves and writes a final one.
func (sess *Session) close(ctx context.Context) error {
	sess.autosave.Wait()
	return sess.adapter.Save(ctx)
}
