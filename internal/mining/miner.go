package mining

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/physics"
)

// Sink receives mined loot.
type Sink interface {
	Credit(kind economy.Resource, amount float64) error
}

// Config tunes a Miner and its field.
type Config struct {
	Field FieldConfig
	// FireInterval is the seconds between volleys at mining_speed 1.
	FireInterval float64
	// DropLifetime is how long uncollected loot floats before it is lost.
	DropLifetime float64
}

// Drop is loot waiting to be picked up.
type Drop struct {
	X, Y float64
	Loot economy.Amounts
	TTL  float64
}

// Report summarizes one Update.
type Report struct {
	Shots     int
	Destroyed int
	Collected economy.Amounts
	Moved     bool
}

// Miner is the ship's mining rig and the field it works. It reads the stat
// block every update and is not safe for concurrent use.
type Miner struct {
	cfg      Config
	field    *Field
	rng      *rand.Rand
	x, y     float64
	cooldown float64
	drops    []Drop
}

// NewMiner creates a miner parked at the centre of a fresh field.
func NewMiner(cfg Config, rng *rand.Rand) *Miner {
	return &Miner{
		cfg:   cfg,
		field: NewField(cfg.Field, rng),
		rng:   rng,
		x:     cfg.Field.Width / 2,
		y:     cfg.Field.Height / 2,
	}
}

// Field returns the asteroid field.
func (m *Miner) Field() *Field { return m.field }

// Position returns the ship position.
func (m *Miner) Position() (float64, float64) { return m.x, m.y }

// Drops returns copies of the uncollected drops.
func (m *Miner) Drops() []Drop {
	out := make([]Drop, len(m.drops))
	copy(out, m.drops)
	return out
}

// Update advances the field and the rig by d. Loot that is collected is
// credited to sink; a credit error stops the update and is returned.
func (m *Miner) Update(d time.Duration, stats economy.Stats, sink Sink) (Report, error) {
	rep := Report{Collected: economy.Amounts{}}
	dt := d.Seconds()
	if dt <= 0 {
		return rep, nil
	}

	m.field.Update(dt)
	rep.Moved = m.steer(dt, stats)

	if err := m.fire(dt, stats, sink, &rep); err != nil {
		return rep, err
	}
	if err := m.sweep(dt, stats, sink, &rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// steer flies toward the nearest rock within autopilot_range when autopilot
// is on and nothing is in attack range.
func (m *Miner) steer(dt float64, stats economy.Stats) bool {
	if !stats.AutopilotEnabled() {
		return false
	}
	if len(m.field.Nearest(m.x, m.y, stats.AttackRange(), 1)) > 0 {
		return false
	}
	targets := m.field.Nearest(m.x, m.y, stats.AutopilotRange(), 1)
	if len(targets) == 0 {
		return false
	}
	speed := stats.ShipSpeed() * stats.AutopilotEfficiency()
	if speed <= 0 {
		return false
	}

	t := targets[0]
	w, h := m.field.Width(), m.field.Height()
	dx := physics.WrapDelta(m.x, t.X, w)
	dy := physics.WrapDelta(m.y, t.Y, h)
	dist := math.Hypot(dx, dy)
	// Stop once the rock would be inside attack range.
	travel := math.Min(speed*dt, math.Max(dist-stats.AttackRange()*0.9, 0))
	if travel <= 0 {
		return false
	}
	m.x = physics.Wrap(m.x+dx/dist*travel, w)
	m.y = physics.Wrap(m.y+dy/dist*travel, h)
	return true
}

// fire shoots up to multi_attack rocks in attack_range once the cooldown
// has elapsed. The cooldown is BaseFireInterval / mining_speed.
func (m *Miner) fire(dt float64, stats economy.Stats, sink Sink, rep *Report) error {
	speed := stats.MiningSpeed()
	if speed <= 0 {
		return nil
	}
	m.cooldown -= dt
	if m.cooldown > 0 {
		return nil
	}

	targets := m.field.Nearest(m.x, m.y, stats.AttackRange(), stats.MultiAttack())
	if len(targets) == 0 {
		m.cooldown = 0
		return nil
	}
	m.cooldown = m.cfg.FireInterval / speed

	for _, a := range targets {
		rep.Shots++
		if !m.field.Damage(a, stats.AttackPower()) {
			continue
		}
		rep.Destroyed++

		loot := a.Ore()
		for k := range loot {
			loot[k] *= stats.MiningPower()
		}
		if m.rng.Float64() < stats.AutoCollect() {
			if err := m.collect(loot, sink, rep); err != nil {
				return err
			}
			continue
		}
		m.drops = append(m.drops, Drop{X: a.X, Y: a.Y, Loot: loot, TTL: m.cfg.DropLifetime})
	}
	return nil
}

// sweep picks up drops within collection_radius and expires old ones.
func (m *Miner) sweep(dt float64, stats economy.Stats, sink Sink, rep *Report) error {
	r := stats.CollectionRadius()
	w, h := m.field.Width(), m.field.Height()

	kept := m.drops[:0]
	var err error
	for _, d := range m.drops {
		if err == nil && physics.WrappedDistanceSquared(m.x, m.y, d.X, d.Y, w, h) <= r*r {
			err = m.collect(d.Loot, sink, rep)
			continue
		}
		d.TTL -= dt
		if d.TTL > 0 {
			kept = append(kept, d)
		}
	}
	clear(m.drops[len(kept):])
	m.drops = kept
	return err
}

func (m *Miner) collect(loot economy.Amounts, sink Sink, rep *Report) error {
	for _, k := range economy.Resources {
		v := loot[k]
		if v <= 0 {
			continue
		}
		if err := sink.Credit(k, v); err != nil {
			return fmt.Errorf("credit %s: %w", k, err)
		}
		rep.Collected[k] += v
	}
	return nil
}
