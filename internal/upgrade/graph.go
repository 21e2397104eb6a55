package upgrade

import (
	"github.com/tomz197/asteroid-idle/internal/economy"
)

// State is the lifecycle position of a node for a given owned set.
type State int

const (
	Locked    State = iota // prerequisites unmet
	Available              // prerequisites met, not yet bought
	Purchased              // terminal
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Available:
		return "available"
	case Purchased:
		return "purchased"
	}
	return "unknown"
}

// MarshalText encodes s by name, so JSON views read "available" not 1.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Set is a set of upgrade ids; the engine uses it for purchased flags.
type Set map[ID]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// StateOf returns the state of id given the owned set.
func (c *Catalog) StateOf(id ID, owned Set) (State, error) {
	i, ok := c.index[id]
	if !ok {
		return Locked, ErrUnknownUpgrade
	}
	if owned.Has(id) {
		return Purchased, nil
	}
	for _, req := range c.nodes[i].Requires {
		if !owned.Has(req) {
			return Locked, nil
		}
	}
	return Available, nil
}

// Missing returns the prerequisites of id that are not owned.
func (c *Catalog) Missing(id ID, owned Set) []ID {
	i, ok := c.index[id]
	if !ok {
		return nil
	}
	var out []ID
	for _, req := range c.nodes[i].Requires {
		if !owned.Has(req) {
			out = append(out, req)
		}
	}
	return out
}

// Available returns, in catalog order, the nodes that are not owned and whose
// every prerequisite is owned.
func (c *Catalog) Available(owned Set) []ID {
	var out []ID
	for _, n := range c.nodes {
		if st, _ := c.StateOf(n.ID, owned); st == Available {
			out = append(out, n.ID)
		}
	}
	return out
}

// CanAfford reports whether id exists, is available and funds cover its cost.
func (c *Catalog) CanAfford(id ID, owned Set, funds economy.Amounts) bool {
	st, err := c.StateOf(id, owned)
	if err != nil || st != Available {
		return false
	}
	return funds.Covers(c.nodes[c.index[id]].Cost)
}
