package upgrade

import (
	"errors"
	"slices"
	"testing"

	"github.com/tomz197/asteroid-idle/internal/economy"
)

func TestStateOf(t *testing.T) {
	c := MustCatalog(testNodes())

	tests := []struct {
		id    ID
		owned Set
		want  State
	}{
		{"a", NewSet(), Available},
		{"a", NewSet("a"), Purchased},
		{"c", NewSet(), Locked},
		{"c", NewSet("a"), Available},
		{"cap", NewSet("a"), Locked},
		{"cap", NewSet("a", "b"), Available},
	}
	for _, tt := range tests {
		got, err := c.StateOf(tt.id, tt.owned)
		if err != nil {
			t.Fatalf("state of %s: %v", tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("state of %s with %v: expected %s, got %s", tt.id, tt.owned, tt.want, got)
		}
	}

	if _, err := c.StateOf("ghost", NewSet()); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected ErrUnknownUpgrade, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	c := MustCatalog(testNodes())

	if got := c.Available(NewSet()); !slices.Equal(got, c.Roots()) {
		t.Fatalf("fresh state should expose only roots, got %v", got)
	}
	if got := c.Available(NewSet("a")); !slices.Equal(got, []ID{"b", "c"}) {
		t.Fatalf("unexpected available set %v", got)
	}
	if got := c.Available(NewSet("a", "b")); !slices.Equal(got, []ID{"c", "cap"}) {
		t.Fatalf("unexpected available set %v", got)
	}
}

func TestCanAffordRequiresAvailability(t *testing.T) {
	c := MustCatalog(testNodes())
	rich := economy.Amounts{economy.Metal: 1e9, economy.Crystal: 1e9}

	if c.CanAfford("c", NewSet(), rich) {
		t.Fatal("locked node must not be affordable regardless of funds")
	}
	if !c.CanAfford("c", NewSet("a"), rich) {
		t.Fatal("available node with funds should be affordable")
	}
	if c.CanAfford("a", NewSet("a"), rich) {
		t.Fatal("purchased node must not be affordable")
	}
	if c.CanAfford("a", NewSet(), economy.Amounts{economy.Metal: 9.99}) {
		t.Fatal("underfunded node must not be affordable")
	}
	if c.CanAfford("ghost", NewSet(), rich) {
		t.Fatal("unknown node must not be affordable")
	}
}

func TestMissing(t *testing.T) {
	c := MustCatalog(testNodes())
	if got := c.Missing("cap", NewSet("b")); !slices.Equal(got, []ID{"a"}) {
		t.Fatalf("unexpected missing prerequisites %v", got)
	}
}
