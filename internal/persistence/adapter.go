package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/progression"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// Adapter saves and loads one engine to a single slot of a Store.
type Adapter struct {
	engine   *progression.Engine
	colonies *colony.Registry
	store    Store
	slot     string
	logger   *log.Logger
	now      func() time.Time
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithColonies persists the colonized planets of r alongside the engine.
func WithColonies(r *colony.Registry) AdapterOption {
	return func(a *Adapter) {
		a.colonies = r
	}
}

func WithLogger(l *log.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithClock overrides the save timestamp source.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

func NewAdapter(engine *progression.Engine, store Store, slot string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		engine: engine,
		store:  store,
		slot:   slot,
		logger: log.New(io.Discard),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Slot returns the slot name the adapter writes to.
func (a *Adapter) Slot() string {
	return a.slot
}

// Snapshot captures the current state without touching the store.
func (a *Adapter) Snapshot() Snapshot {
	st := a.engine.Export()
	owned := upgrade.NewSet(st.Purchased...)

	nodes := a.engine.Catalog().Nodes()
	records := make([]UpgradeRecord, len(nodes))
	for i, n := range nodes {
		records[i] = UpgradeRecord{ID: n.ID, Purchased: owned.Has(n.ID)}
	}

	s := Snapshot{
		Version:   Version,
		SavedAt:   a.now().UTC(),
		Resources: st.Resources.Amounts,
		Rates:     st.Resources.Rates,
		Stats:     st.Stats,
		Upgrades:  records,
	}
	if a.colonies != nil {
		s.Colonies = a.colonies.Colonized()
	}
	return s
}

// Write encodes s into the slot.
func (a *Adapter) Write(ctx context.Context, s Snapshot) error {
	blob, err := Encode(s)
	if err != nil {
		return err
	}
	if err := a.store.Put(ctx, a.slot, blob, s.SavedAt); err != nil {
		return fmt.Errorf("save %s: %w", a.slot, err)
	}
	return nil
}

// Save snapshots the engine and writes it to the slot.
func (a *Adapter) Save(ctx context.Context) error {
	s := a.Snapshot()
	if err := a.Write(ctx, s); err != nil {
		a.logger.Error("save failed", "slot", a.slot, "err", err)
		return err
	}
	a.logger.Debug("saved", "slot", a.slot, "purchased", len(s.Purchased()))
	return nil
}

// Load restores the slot into the engine. On any failure the engine is left
// at its defaults and the error is returned for the caller to log or ignore;
// ErrSlotNotFound means there was nothing to load.
func (a *Adapter) Load(ctx context.Context) error {
	blob, err := a.store.Get(ctx, a.slot)
	if err != nil {
		a.resetState()
		if errors.Is(err, ErrSlotNotFound) {
			a.logger.Info("no save found, starting fresh", "slot", a.slot)
		} else {
			a.logger.Error("load failed, starting fresh", "slot", a.slot, "err", err)
		}
		return err
	}

	s, err := Decode(blob)
	if err != nil {
		a.resetState()
		a.logger.Error("save is corrupt, starting fresh", "slot", a.slot, "err", err)
		return err
	}

	a.Apply(s)
	return nil
}

// Apply restores a decoded snapshot into the engine and colonies.
func (a *Adapter) Apply(s Snapshot) {
	st := progression.State{
		Purchased: s.Purchased(),
	}
	st.Resources.Amounts = s.Resources
	st.Resources.Rates = s.Rates
	if s.Version > VersionLegacy {
		st.Stats = s.Stats
	}

	dropped := a.engine.Restore(st)
	if len(dropped) > 0 {
		a.logger.Warn("dropped unknown upgrades from save", "slot", a.slot, "ids", dropped)
	}
	if a.colonies != nil {
		if lost := a.colonies.Restore(s.Colonies); len(lost) > 0 {
			a.logger.Warn("dropped unknown planets from save", "slot", a.slot, "ids", lost)
		}
	}
	a.logger.Info("save loaded", "slot", a.slot, "version", s.Version, "saved_at", s.SavedAt)
}

// Reset deletes the slot and returns the engine to its defaults. The
// in-memory reset happens even if the delete fails.
func (a *Adapter) Reset(ctx context.Context) error {
	a.resetState()
	if err := a.store.Delete(ctx, a.slot); err != nil {
		a.logger.Error("delete save failed", "slot", a.slot, "err", err)
		return fmt.Errorf("reset %s: %w", a.slot, err)
	}
	a.logger.Info("save reset", "slot", a.slot)
	return nil
}

func (a *Adapter) resetState() {
	a.engine.Reset()
	if a.colonies != nil {
		a.colonies.Reset()
	}
}
