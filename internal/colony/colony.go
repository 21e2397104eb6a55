// Package colony tracks settled planets and their passive yields.
package colony

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomz197/asteroid-idle/internal/economy"
)

// ID identifies a planet.
type ID string

// Planet is a colonization target.
type Planet struct {
	ID          ID              `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Cost        economy.Amounts `yaml:"cost" json:"cost"`
	Yield       economy.Amounts `yaml:"yield" json:"yield"`
}

var (
	ErrUnknownPlanet    = errors.New("unknown planet")
	ErrAlreadyColonized = errors.New("planet already colonized")
	ErrInvalidPlanet    = errors.New("invalid planet")
)

// Spender debits a cost all-or-nothing.
type Spender interface {
	Spend(cost economy.Amounts) error
}

// Sink receives yields.
type Sink interface {
	Credit(kind economy.Resource, amount float64) error
}

// Registry is the planet list of one session and which of them are settled.
// It is safe for concurrent use.
type Registry struct {
	planets []Planet
	index   map[ID]int

	mu        sync.Mutex
	colonized map[ID]struct{}
}

// NewRegistry validates planets and returns a registry with none colonized.
func NewRegistry(planets []Planet) (*Registry, error) {
	r := &Registry{
		planets:   make([]Planet, len(planets)),
		index:     make(map[ID]int, len(planets)),
		colonized: make(map[ID]struct{}),
	}
	for i, p := range planets {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: planet %d has no id", ErrInvalidPlanet, i)
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidPlanet, p.ID)
		}
		if err := p.Cost.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s cost: %v", ErrInvalidPlanet, p.ID, err)
		}
		if err := p.Yield.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s yield: %v", ErrInvalidPlanet, p.ID, err)
		}
		p.Cost = p.Cost.Clone()
		p.Yield = p.Yield.Clone()
		r.planets[i] = p
		r.index[p.ID] = i
	}
	return r, nil
}

// Planet returns the planet with id.
func (r *Registry) Planet(id ID) (Planet, bool) {
	i, ok := r.index[id]
	if !ok {
		return Planet{}, false
	}
	return r.planets[i], true
}

// Colonize settles id, paying its cost through spender. On error nothing
// changes.
func (r *Registry) Colonize(id ID, spender Spender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.Planet(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlanet, id)
	}
	if _, done := r.colonized[id]; done {
		return fmt.Errorf("%w: %s", ErrAlreadyColonized, id)
	}
	if err := spender.Spend(p.Cost); err != nil {
		return fmt.Errorf("colonize %s: %w", id, err)
	}
	r.colonized[id] = struct{}{}
	return nil
}

// Tick credits d worth of yield from every colonized planet to sink.
func (r *Registry) Tick(d time.Duration, sink Sink) error {
	secs := d.Seconds()
	if secs <= 0 {
		return nil
	}
	total := r.Yield()
	for _, k := range economy.Resources {
		if v := total[k]; v > 0 {
			if err := sink.Credit(k, v*secs); err != nil {
				return fmt.Errorf("credit %s yield: %w", k, err)
			}
		}
	}
	return nil
}

// Yield returns the combined per-second yield of all colonies.
func (r *Registry) Yield() economy.Amounts {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := economy.Amounts{}
	for _, p := range r.planets {
		if _, ok := r.colonized[p.ID]; !ok {
			continue
		}
		for k, v := range p.Yield {
			total[k] += v
		}
	}
	return total
}

// Colonized returns the settled planet ids in planet order.
func (r *Registry) Colonized() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []ID
	for _, p := range r.planets {
		if _, ok := r.colonized[p.ID]; ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Restore replaces the colonized set with ids. Unknown ids are dropped and
// returned.
func (r *Registry) Restore(ids []ID) (dropped []ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.colonized = make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.index[id]; !ok {
			dropped = append(dropped, id)
			continue
		}
		r.colonized[id] = struct{}{}
	}
	return dropped
}

// Reset abandons every colony.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colonized = make(map[ID]struct{})
}

// Status is a planet with its colonized flag.
type Status struct {
	Planet
	Colonized bool `json:"colonized"`
}

// Planets returns every planet with its status, in planet order.
func (r *Registry) Planets() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, len(r.planets))
	for i, p := range r.planets {
		_, ok := r.colonized[p.ID]
		out[i] = Status{Planet: p, Colonized: ok}
	}
	return out
}
