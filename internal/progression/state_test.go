package progression

import (
	"slices"
	"testing"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

func TestExportRestoreRoundTrip(t *testing.T) {
	src := newEngine(economy.Amounts{economy.Metal: 200, economy.Crystal: 50})
	for _, id := range []upgrade.ID{"drill", "scanner", "laser", "capstone"} {
		if err := src.Purchase(id); err != nil {
			t.Fatalf("purchase %s: %v", id, err)
		}
	}
	saved := src.Export()

	dst := newEngine(nil)
	if dropped := dst.Restore(saved); len(dropped) != 0 {
		t.Fatalf("unexpected dropped ids %v", dropped)
	}

	assertSameState(t, saved, dst.Export())
	if !slices.Equal(dst.Export().Purchased, saved.Purchased) {
		t.Fatalf("purchased ids differ: %v vs %v", dst.Export().Purchased, saved.Purchased)
	}
	if err := dst.Purchase("drill"); err == nil {
		t.Fatal("restored purchase should not be buyable again")
	}
}

func TestRestoreDoesNotReplayWhenStatsPresent(t *testing.T) {
	src := newEngine(economy.Amounts{economy.Metal: 20, economy.Crystal: 10})
	if err := src.Purchase("drill"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := src.Purchase("laser"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	saved := src.Export()

	dst := newEngine(nil)
	dst.Restore(saved)

	if got := dst.Resources().Rates[economy.Metal]; got != 0.5 {
		t.Fatalf("expected metal rate 0.5 (applied once), got %g", got)
	}
	if got := dst.Stats().MiningPower(); got != 2 {
		t.Fatalf("expected mining power 2 (scaled once), got %g", got)
	}
}

func TestRestoreLegacyReplaysNonGrantEffects(t *testing.T) {
	e := newEngine(nil)
	dropped := e.Restore(State{
		Resources: economy.Snapshot{Amounts: economy.Amounts{economy.Metal: 42}},
		Purchased: []upgrade.ID{"drill", "scanner", "laser", "capstone", "retired_node"},
	})

	if !slices.Equal(dropped, []upgrade.ID{"retired_node"}) {
		t.Fatalf("expected retired_node dropped, got %v", dropped)
	}
	res := e.Resources()
	if res.Amounts[economy.Metal] != 42 {
		t.Fatalf("balances must stay authoritative, got %g metal", res.Amounts[economy.Metal])
	}
	if res.Rates[economy.Metal] != 0.5 {
		t.Fatalf("expected replayed metal rate 0.5, got %g", res.Rates[economy.Metal])
	}
	stats := e.Stats()
	if stats.MiningPower() != 2 || stats.MultiAttack() != 2 {
		t.Fatalf("unexpected replayed stats %v", stats)
	}
	if stats.AttackRange() != economy.DefaultStats().AttackRange()+5 {
		t.Fatalf("unexpected attack range %g", stats.AttackRange())
	}
}
