package economy

import (
	"errors"
	"fmt"
	"math"
)

// Stat names a player parameter.
type Stat string

const (
	ShipSpeed           Stat = "ship_speed"
	MiningSpeed         Stat = "mining_speed"
	MiningPower         Stat = "mining_power"
	AttackRange         Stat = "attack_range"
	AttackPower         Stat = "attack_power"
	MultiAttack         Stat = "multi_attack"
	CollectionRadius    Stat = "collection_radius"
	AutoCollect         Stat = "auto_collect"
	Autopilot           Stat = "autopilot"
	AutopilotRange      Stat = "autopilot_range"
	AutopilotEfficiency Stat = "autopilot_efficiency"
)

// ErrUnknownStat is returned for a stat name outside the stat block.
var ErrUnknownStat = errors.New("unknown stat")

type statKind int

const (
	statNumeric     statKind = iota // >= 0
	statProbability                 // [0,1]
	statFlag                        // 0 or 1
)

type statSpec struct {
	stat Stat
	def  float64
	kind statKind
}

// statSpecs lists every stat with its default, in display order.
var statSpecs = []statSpec{
	{ShipSpeed, 25, statNumeric},
	{MiningSpeed, 1, statNumeric},
	{MiningPower, 1, statNumeric},
	{AttackRange, 15, statNumeric},
	{AttackPower, 1, statNumeric},
	{MultiAttack, 1, statNumeric},
	{CollectionRadius, 8, statNumeric},
	{AutoCollect, 0, statProbability},
	{Autopilot, 0, statFlag},
	{AutopilotRange, 60, statNumeric},
	{AutopilotEfficiency, 0.5, statNumeric},
}

// AllStats returns every stat name in display order.
func AllStats() []Stat {
	out := make([]Stat, len(statSpecs))
	for i, s := range statSpecs {
		out[i] = s.stat
	}
	return out
}

func lookupStat(s Stat) (statSpec, bool) {
	for _, spec := range statSpecs {
		if spec.stat == s {
			return spec, true
		}
	}
	return statSpec{}, false
}

// Valid reports whether s names a stat in the block.
func (s Stat) Valid() bool {
	_, ok := lookupStat(s)
	return ok
}

// Stats is a read-only view of a stat block, handed to gameplay systems.
type Stats map[Stat]float64

// DefaultStats returns the starting stat values.
func DefaultStats() Stats {
	out := make(Stats, len(statSpecs))
	for _, s := range statSpecs {
		out[s.stat] = s.def
	}
	return out
}

// Clone returns an independent copy of s.
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Stats) ShipSpeed() float64           { return s[ShipSpeed] }
func (s Stats) MiningSpeed() float64         { return s[MiningSpeed] }
func (s Stats) MiningPower() float64         { return s[MiningPower] }
func (s Stats) AttackRange() float64         { return s[AttackRange] }
func (s Stats) AttackPower() float64         { return s[AttackPower] }
func (s Stats) CollectionRadius() float64    { return s[CollectionRadius] }
func (s Stats) AutoCollect() float64         { return s[AutoCollect] }
func (s Stats) AutopilotEnabled() bool       { return s[Autopilot] != 0 }
func (s Stats) AutopilotRange() float64      { return s[AutopilotRange] }
func (s Stats) AutopilotEfficiency() float64 { return s[AutopilotEfficiency] }

// MultiAttack returns how many targets can be hit at once. Always at least 1.
func (s Stats) MultiAttack() int {
	n := int(s[MultiAttack])
	if n < 1 {
		return 1
	}
	return n
}

// StatBlock is the mutable stat set owned by the progression engine.
type StatBlock struct {
	values Stats
}

// NewStatBlock creates a stat block with default values, overridden by any
// known entries in initial. Overrides are clamped like SetStat.
func NewStatBlock(initial Stats) *StatBlock {
	b := &StatBlock{values: DefaultStats()}
	for k, v := range initial {
		if spec, ok := lookupStat(k); ok {
			b.values[k] = clampStat(spec.kind, v)
		}
	}
	return b
}

// Clone returns an independent copy of b.
func (b *StatBlock) Clone() *StatBlock {
	return &StatBlock{values: b.values.Clone()}
}

// Get returns the current value of s.
func (b *StatBlock) Get(s Stat) float64 {
	return b.values[s]
}

// Set overwrites s. Probability stats are clamped to [0,1], flags are
// coerced to 0 or 1 and numeric stats are floored at 0.
func (b *StatBlock) Set(s Stat, v float64) error {
	spec, ok := lookupStat(s)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStat, s)
	}
	b.values[s] = clampStat(spec.kind, v)
	return nil
}

// Add increases s by delta.
func (b *StatBlock) Add(s Stat, delta float64) error {
	return b.Set(s, b.values[s]+delta)
}

// Scale multiplies s by factor.
func (b *StatBlock) Scale(s Stat, factor float64) error {
	return b.Set(s, b.values[s]*factor)
}

// Values returns a copy of every stat.
func (b *StatBlock) Values() Stats {
	return b.values.Clone()
}

func clampStat(kind statKind, v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	switch kind {
	case statProbability:
		if v > 1 {
			return 1
		}
	case statFlag:
		if v != 0 {
			return 1
		}
		return 0
	}
	if v < 0 {
		return 0
	}
	return v
}
