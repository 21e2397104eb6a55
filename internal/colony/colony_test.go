package colony

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomz197/asteroid-idle/internal/economy"
)

type wallet struct {
	funds economy.Amounts
}

func (w *wallet) Spend(cost economy.Amounts) error {
	if !w.funds.Covers(cost) {
		return economy.ErrInsufficientResources
	}
	for k, v := range cost {
		w.funds[k] -= v
	}
	return nil
}

func (w *wallet) Credit(kind economy.Resource, amount float64) error {
	w.funds[kind] += amount
	return nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Planet{
		{ID: "ceres", Cost: economy.Amounts{economy.Metal: 10}, Yield: economy.Amounts{economy.Metal: 2}},
		{ID: "europa", Cost: economy.Amounts{economy.Crystal: 5}, Yield: economy.Amounts{economy.Crystal: 1}},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestColonize(t *testing.T) {
	r := testRegistry(t)
	w := &wallet{funds: economy.Amounts{economy.Metal: 15}}

	if err := r.Colonize("ceres", w); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	if w.funds[economy.Metal] != 5 {
		t.Fatalf("expected 5 metal left, got %g", w.funds[economy.Metal])
	}
	if err := r.Colonize("ceres", w); !errors.Is(err, ErrAlreadyColonized) {
		t.Fatalf("expected ErrAlreadyColonized, got %v", err)
	}
	if err := r.Colonize("pluto", w); !errors.Is(err, ErrUnknownPlanet) {
		t.Fatalf("expected ErrUnknownPlanet, got %v", err)
	}
	if err := r.Colonize("europa", w); !errors.Is(err, economy.ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
	if got := r.Colonized(); len(got) != 1 || got[0] != "ceres" {
		t.Fatalf("unexpected colonized set %v", got)
	}
}

func TestTickCreditsYield(t *testing.T) {
	r := testRegistry(t)
	r.Restore([]ID{"ceres", "europa"})
	w := &wallet{funds: economy.Amounts{}}

	if err := r.Tick(1500*time.Millisecond, w); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if w.funds[economy.Metal] != 3 || w.funds[economy.Crystal] != 1.5 {
		t.Fatalf("unexpected yield %v", w.funds)
	}

	if err := r.Tick(0, w); err != nil {
		t.Fatalf("tick(0): %v", err)
	}
	if w.funds[economy.Metal] != 3 {
		t.Fatalf("tick(0) credited metal: %g", w.funds[economy.Metal])
	}
}

func TestRestoreDropsUnknown(t *testing.T) {
	r := testRegistry(t)
	dropped := r.Restore([]ID{"europa", "atlantis"})
	if len(dropped) != 1 || dropped[0] != "atlantis" {
		t.Fatalf("unexpected dropped %v", dropped)
	}
	r.Reset()
	if len(r.Colonized()) != 0 {
		t.Fatal("reset kept colonies")
	}
}

func TestNewRegistryRejects(t *testing.T) {
	tests := []struct {
		name    string
		planets []Planet
	}{
		{"missing id", []Planet{{Name: "x"}}},
		{"duplicate", []Planet{{ID: "a"}, {ID: "a"}}},
		{"negative cost", []Planet{{ID: "a", Cost: economy.Amounts{economy.Metal: -1}}}},
		{"unknown yield", []Planet{{ID: "a", Yield: economy.Amounts{"gold": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.planets); !errors.Is(err, ErrInvalidPlanet) {
				t.Fatalf("expected ErrInvalidPlanet, got %v", err)
			}
		})
	}
}

func TestDefaultPlanets(t *testing.T) {
	r := NewDefault()
	if len(r.Planets()) == 0 {
		t.Fatal("built-in planet list is empty")
	}
	if _, err := Parse(strings.NewReader("planets:\n  - id: a\n    gravity: 3\n")); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}
