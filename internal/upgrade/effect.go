package upgrade

import (
	"errors"
	"fmt"

	"github.com/tomz197/asteroid-idle/internal/economy"
)

// EffectKind tags the variant held by an Effect.
type EffectKind string

const (
	AddRate    EffectKind = "add_rate"    // rate[resource] += value
	ScaleRate  EffectKind = "scale_rate"  // rate[resource] *= value
	AddStat    EffectKind = "add_stat"    // stat += value
	ScaleStat  EffectKind = "scale_stat"  // stat *= value
	SetStat    EffectKind = "set_stat"    // stat = value, clamped
	Grant      EffectKind = "grant"       // amount[resource] += value
	DeriveRate EffectKind = "derive_rate" // rate[resource] += value * rate[from]
	Compound   EffectKind = "compound"    // every effect in Effects, in order
)

// ErrInvalidEffect is returned when an effect is malformed.
var ErrInvalidEffect = errors.New("invalid effect")

// Effect is the mutation a node applies once, at purchase time.
type Effect struct {
	Kind     EffectKind       `yaml:"kind" json:"kind"`
	Resource economy.Resource `yaml:"resource,omitempty" json:"resource,omitempty"`
	From     economy.Resource `yaml:"from,omitempty" json:"from,omitempty"`
	Stat     economy.Stat     `yaml:"stat,omitempty" json:"stat,omitempty"`
	Value    float64          `yaml:"value,omitempty" json:"value,omitempty"`
	Effects  []Effect         `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// Validate checks that the effect references known resources and stats and
// that its value moves things in the upgrade direction.
func (e Effect) Validate() error {
	switch e.Kind {
	case AddRate, Grant:
		if !e.Resource.Valid() {
			return fmt.Errorf("%w: %s: unknown resource %q", ErrInvalidEffect, e.Kind, e.Resource)
		}
		if e.Value <= 0 {
			return fmt.Errorf("%w: %s: value must be positive", ErrInvalidEffect, e.Kind)
		}
	case ScaleRate:
		if !e.Resource.Valid() {
			return fmt.Errorf("%w: %s: unknown resource %q", ErrInvalidEffect, e.Kind, e.Resource)
		}
		if e.Value <= 1 {
			return fmt.Errorf("%w: %s: factor must be greater than 1", ErrInvalidEffect, e.Kind)
		}
	case DeriveRate:
		if !e.Resource.Valid() || !e.From.Valid() {
			return fmt.Errorf("%w: %s: unknown resource %q from %q", ErrInvalidEffect, e.Kind, e.Resource, e.From)
		}
		if e.Value <= 0 {
			return fmt.Errorf("%w: %s: value must be positive", ErrInvalidEffect, e.Kind)
		}
	case AddStat:
		if !e.Stat.Valid() {
			return fmt.Errorf("%w: %s: unknown stat %q", ErrInvalidEffect, e.Kind, e.Stat)
		}
		if e.Value <= 0 {
			return fmt.Errorf("%w: %s: value must be positive", ErrInvalidEffect, e.Kind)
		}
	case ScaleStat:
		if !e.Stat.Valid() {
			return fmt.Errorf("%w: %s: unknown stat %q", ErrInvalidEffect, e.Kind, e.Stat)
		}
		if e.Value <= 1 {
			return fmt.Errorf("%w: %s: factor must be greater than 1", ErrInvalidEffect, e.Kind)
		}
	case SetStat:
		if !e.Stat.Valid() {
			return fmt.Errorf("%w: %s: unknown stat %q", ErrInvalidEffect, e.Kind, e.Stat)
		}
	case Compound:
		if len(e.Effects) == 0 {
			return fmt.Errorf("%w: compound without effects", ErrInvalidEffect)
		}
		for i, sub := range e.Effects {
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("compound[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEffect, e.Kind)
	}
	return nil
}

// Apply mutates ledger and stats in place. Callers that need atomicity
// apply to clones and commit on success.
func (e Effect) Apply(ledger *economy.Ledger, stats *economy.StatBlock) error {
	switch e.Kind {
	case AddRate:
		return ledger.AddRate(e.Resource, e.Value)
	case ScaleRate:
		return ledger.ScaleRate(e.Resource, e.Value)
	case DeriveRate:
		return ledger.AddRate(e.Resource, e.Value*ledger.Rate(e.From))
	case Grant:
		return ledger.Add(e.Resource, e.Value)
	case AddStat:
		return stats.Add(e.Stat, e.Value)
	case ScaleStat:
		return stats.Scale(e.Stat, e.Value)
	case SetStat:
		return stats.Set(e.Stat, e.Value)
	case Compound:
		for _, sub := range e.Effects {
			if err := sub.Apply(ledger, stats); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidEffect, e.Kind)
}

// WithoutGrants returns e with every Grant removed, for re-deriving rates and
// stats without touching balances. The second result is false when nothing
// remains.
func (e Effect) WithoutGrants() (Effect, bool) {
	switch e.Kind {
	case Grant:
		return Effect{}, false
	case Compound:
		var kept []Effect
		for _, sub := range e.Effects {
			if s, ok := sub.WithoutGrants(); ok {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return Effect{}, false
		}
		return Effect{Kind: Compound, Effects: kept}, true
	}
	return e, true
}

// Touches reports whether e, or any effect nested in it, writes stat.
func (e Effect) Touches(stat economy.Stat) bool {
	if e.Kind == Compound {
		for _, sub := range e.Effects {
			if sub.Touches(stat) {
				return true
			}
		}
		return false
	}
	switch e.Kind {
	case AddStat, ScaleStat, SetStat:
		return e.Stat == stat
	}
	return false
}

// Describe renders a short human summary, e.g. "+0.5 metal/s".
func (e Effect) Describe() string {
	switch e.Kind {
	case AddRate:
		return fmt.Sprintf("+%g %s/s", e.Value, e.Resource)
	case ScaleRate:
		return fmt.Sprintf("x%g %s/s", e.Value, e.Resource)
	case DeriveRate:
		return fmt.Sprintf("+%g%% of %s/s as %s/s", e.Value*100, e.From, e.Resource)
	case Grant:
		return fmt.Sprintf("+%g %s", e.Value, e.Resource)
	case AddStat:
		return fmt.Sprintf("+%g %s", e.Value, e.Stat)
	case ScaleStat:
		return fmt.Sprintf("x%g %s", e.Value, e.Stat)
	case SetStat:
		return fmt.Sprintf("%s=%g", e.Stat, e.Value)
	case Compound:
		s := ""
		for i, sub := range e.Effects {
			if i > 0 {
				s += ", "
			}
			s += sub.Describe()
		}
		return s
	}
	return string(e.Kind)
}
