package progression

import (
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// State is a copy of everything the engine persists.
type State struct {
	Resources economy.Snapshot
	// Stats is nil for saves written before the stat block was persisted.
	Stats     economy.Stats
	Purchased []upgrade.ID
}

// Export returns the current state, with purchased ids in catalog order.
func (e *Engine) Export() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	var owned []upgrade.ID
	for _, id := range e.catalog.IDs() {
		if e.owned.Has(id) {
			owned = append(owned, id)
		}
	}
	return State{
		Resources: e.ledger.Snapshot(),
		Stats:     e.stats.Values(),
		Purchased: owned,
	}
}

// Restore replaces the engine state with s. Balances are always taken
// verbatim. When s carries stats, rates and stats are taken verbatim too and
// no effect is replayed, since they already include every purchase. When s
// has no stats, rates and stats are rebuilt from the defaults by replaying
// the non-grant effects of the purchased nodes in catalog order.
//
// Purchased ids missing from the catalog are dropped and returned.
func (e *Engine) Restore(s State) (dropped []upgrade.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owned := upgrade.NewSet()
	for _, id := range s.Purchased {
		if _, ok := e.catalog.Node(id); !ok {
			dropped = append(dropped, id)
			continue
		}
		owned[id] = struct{}{}
	}

	if s.Stats != nil {
		e.ledger = economy.NewLedger(s.Resources.Amounts, s.Resources.Rates)
		e.stats = economy.NewStatBlock(s.Stats)
		e.owned = owned
		e.logger.Debug("progression restored", "purchased", len(owned), "dropped", len(dropped))
		return dropped
	}

	ledger := economy.NewLedger(s.Resources.Amounts, e.defaults.Rates)
	stats := economy.NewStatBlock(e.defaults.Stats)
	for _, n := range e.catalog.Nodes() {
		if !owned.Has(n.ID) {
			continue
		}
		eff, ok := n.Effect.WithoutGrants()
		if !ok {
			continue
		}
		if err := eff.Apply(ledger, stats); err != nil {
			e.logger.Warn("replay effect failed", "id", n.ID, "err", err)
		}
	}
	e.ledger = ledger
	e.stats = stats
	e.owned = owned
	e.logger.Info("progression restored from legacy save", "purchased", len(owned), "dropped", len(dropped))
	return dropped
}

// NodeStatus is one catalog node with its session state, for presentation.
type NodeStatus struct {
	upgrade.Node
	State      upgrade.State `json:"state"`
	Affordable bool          `json:"affordable"`
	Children   []upgrade.ID  `json:"children,omitempty"`
}

// Nodes returns the status of every node in catalog order, computed under a
// single lock so the list is consistent.
func (e *Engine) Nodes() []NodeStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	funds := e.ledger.Snapshot().Amounts
	nodes := e.catalog.Nodes()
	out := make([]NodeStatus, len(nodes))
	for i, n := range nodes {
		st, _ := e.catalog.StateOf(n.ID, e.owned)
		out[i] = NodeStatus{
			Node:       n,
			State:      st,
			Affordable: st == upgrade.Available && funds.Covers(n.Cost),
			Children:   e.catalog.Children(n.ID),
		}
	}
	return out
}
