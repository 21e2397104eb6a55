// Package progression runs the upgrade economy of one game session. The
// Engine owns the resource ledger, the stat block and the purchased flags of
// the catalog, and serializes every mutation of them behind one mutex so
// accrual ticks, purchases and external credits never observe torn state.
package progression

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

var (
	ErrUnknownUpgrade    = upgrade.ErrUnknownUpgrade
	ErrAlreadyPurchased  = errors.New("upgrade already purchased")
	ErrPrerequisiteUnmet = errors.New("prerequisites not purchased")
	// ErrInsufficientResources aliases the ledger error so callers can check
	// purchase failures without importing economy.
	ErrInsufficientResources = economy.ErrInsufficientResources
)

// Defaults are the starting balances, rates and stats of a fresh session.
type Defaults struct {
	Amounts economy.Amounts
	Rates   economy.Amounts
	Stats   economy.Stats
}

// Engine is the progression state of one session. It is safe for concurrent
// use.
type Engine struct {
	catalog  *upgrade.Catalog
	defaults Defaults
	logger   *log.Logger

	mu     sync.Mutex
	ledger *economy.Ledger
	stats  *economy.StatBlock
	owned  upgrade.Set
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults overrides the starting balances, rates and stats.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		e.defaults = d
	}
}

// WithLogger sets the logger for purchase and restore events.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine over catalog with fresh state.
func New(catalog *upgrade.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked()
	return e
}

// Catalog returns the catalog the engine was built with.
func (e *Engine) Catalog() *upgrade.Catalog {
	return e.catalog
}

// Tick accrues passive income for d. Non-positive durations are ignored.
func (e *Engine) Tick(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Tick(d.Seconds())
}

// Purchase buys id: it checks availability and funds, debits the cost,
// applies the effect and marks the node purchased as one transaction. On
// error nothing changes.
func (e *Engine) Purchase(id upgrade.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.catalog.Node(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
	}
	if e.owned.Has(id) {
		return fmt.Errorf("%w: %s", ErrAlreadyPurchased, id)
	}
	if missing := e.catalog.Missing(id, e.owned); len(missing) > 0 {
		return fmt.Errorf("%w: %s needs %v", ErrPrerequisiteUnmet, id, missing)
	}

	ledger := e.ledger.Clone()
	stats := e.stats.Clone()
	if err := ledger.Spend(node.Cost); err != nil {
		return fmt.Errorf("purchase %s: %w", id, err)
	}
	if err := node.Effect.Apply(ledger, stats); err != nil {
		return fmt.Errorf("purchase %s: apply effect: %w", id, err)
	}

	e.ledger = ledger
	e.stats = stats
	e.owned[id] = struct{}{}

	e.logger.Debug("upgrade purchased", "id", id, "cost", node.Cost.String(), "effect", node.Effect.Describe())
	return nil
}

// CanAfford reports whether id exists, is available and is covered by the
// current balances.
func (e *Engine) CanAfford(id upgrade.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.CanAfford(id, e.owned, e.ledger.Snapshot().Amounts)
}

// State returns the lifecycle state of id.
func (e *Engine) State(id upgrade.ID) (upgrade.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.StateOf(id, e.owned)
}

// Available returns the ids that can be bought now, funds permitting.
func (e *Engine) Available() []upgrade.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Available(e.owned)
}

// Purchased reports whether id has been bought.
func (e *Engine) Purchased(id upgrade.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owned.Has(id)
}

// Credit adds amount of kind to the ledger, e.g. for mined ore or colony
// yield. A negative amount is a debit and fails without change if it would
// overdraw.
func (e *Engine) Credit(kind economy.Resource, amount float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Add(kind, amount)
}

// Spend debits cost all-or-nothing, for purchases outside the catalog such as
// colonization.
func (e *Engine) Spend(cost economy.Amounts) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Spend(cost)
}

// SetStat overrides a stat directly. Used by systems with legitimate direct
// writes, such as the autopilot toggle.
func (e *Engine) SetStat(s economy.Stat, v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Set(s, v)
}

// Resources returns a copy of balances and rates.
func (e *Engine) Resources() economy.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Snapshot()
}

// Stats returns a copy of the stat block.
func (e *Engine) Stats() economy.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Values()
}

// Reset returns the engine to its starting state: default balances, rates
// and stats, and every node unpurchased.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.logger.Info("progression reset")
}

func (e *Engine) resetLocked() {
	e.ledger = economy.NewLedger(e.defaults.Amounts, e.defaults.Rates)
	e.stats = economy.NewStatBlock(e.defaults.Stats)
	e.owned = upgrade.NewSet()
}
