package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/mining"
	"github.com/tomz197/asteroid-idle/internal/persistence"
	"github.com/tomz197/asteroid-idle/internal/progression"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

func testCatalog() *upgrade.Catalog {
	return upgrade.MustCatalog([]upgrade.Node{
		{
			ID:     "drill",
			Cost:   economy.Amounts{economy.Metal: 10},
			Effect: upgrade.Effect{Kind: upgrade.AddRate, Resource: economy.Metal, Value: 1},
		},
		{
			ID:     "pilot",
			Cost:   economy.Amounts{economy.Metal: 5},
			Effect: upgrade.Effect{Kind: upgrade.SetStat, Stat: economy.Autopilot, Value: 1},
		},
	})
}

func newTestServer(t *testing.T, store persistence.Store, opts ...Option) *Server {
	t.Helper()
	base := []Option{
		WithCatalog(testCatalog()),
		WithStore(store),
		WithDefaults(progression.Defaults{Amounts: economy.Amounts{economy.Metal: 20}}),
		WithMiningConfig(mining.Config{
			Field:        mining.FieldConfig{Width: 100, Height: 100},
			FireInterval: 1,
			DropLifetime: 1,
		}),
		WithAutosaveInterval(time.Hour),
		WithSeed(func() int64 { return 1 }),
	}
	s, err := NewServer(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

func register(t *testing.T, s *Server, player string) *ClientHandle {
	t.Helper()
	h, err := s.RegisterClient(player)
	if err != nil {
		t.Fatalf("register %s: %v", player, err)
	}
	return h
}

func nextEvent(t *testing.T, h *ClientHandle) ClientEvent {
	t.Helper()
	select {
	case ev := <-h.EventsCh:
		return ev
	default:
		t.Fatal("expected an event")
		return ClientEvent{}
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, persistence.NewMemoryStore())
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	s.step(ctx, time.Now(), 0)

	s.SendIntent(alice.ID, Intent{Kind: IntentPurchase, Target: "drill"})
	s.step(ctx, time.Now(), 0)

	if ev := nextEvent(t, alice); ev.Type != EventIntentResult || ev.Err != nil {
		t.Fatalf("unexpected purchase result %+v", ev)
	}
	a, b := s.GetSnapshot(alice.ID), s.GetSnapshot(bob.ID)
	if a.Resources.Amounts[economy.Metal] != 10 || a.Resources.Rates[economy.Metal] != 1 {
		t.Fatalf("alice not charged: %+v", a.Resources)
	}
	if b.Resources.Amounts[economy.Metal] != 20 || b.Resources.Rates[economy.Metal] != 0 {
		t.Fatalf("bob affected by alice: %+v", b.Resources)
	}
}

func TestSameNameSharesSession(t *testing.T) {
	s := newTestServer(t, persistence.NewMemoryStore())
	h1 := register(t, s, "alice")
	h2 := register(t, s, " alice ")
	s.step(context.Background(), time.Now(), 0)

	if h1.session != h2.session {
		t.Fatal("expected both clients on one session")
	}
	if got := s.GetSnapshot(h1.ID).Clients; got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
}

func TestTickAccruesIncome(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, persistence.NewMemoryStore())
	h := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)
	s.SendIntent(h.ID, Intent{Kind: IntentPurchase, Target: "drill"})
	s.step(ctx, time.Now(), 0)

	s.step(ctx, time.Now(), 2*time.Second)
	if got := s.GetSnapshot(h.ID).Resources.Amounts[economy.Metal]; got != 12 {
		t.Fatalf("expected 12 metal after 2s at 1/s, got %g", got)
	}
}

func TestIntentErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, persistence.NewMemoryStore(),
		WithDefaults(progression.Defaults{Amounts: economy.Amounts{economy.Metal: 1}}))
	h := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)

	tests := []struct {
		intent Intent
		want   error
	}{
		{Intent{Kind: IntentPurchase, Target: "drill"}, progression.ErrInsufficientResources},
		{Intent{Kind: IntentPurchase, Target: "warp"}, progression.ErrUnknownUpgrade},
		{Intent{Kind: IntentToggleAutopilot}, ErrAutopilotLocked},
	}
	for _, tt := range tests {
		s.SendIntent(h.ID, tt.intent)
		s.step(ctx, time.Now(), 0)
		ev := nextEvent(t, h)
		if !errors.Is(ev.Err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.intent, tt.want, ev.Err)
		}
	}
}

func TestAutopilotToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, persistence.NewMemoryStore())
	h := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)

	s.SendIntent(h.ID, Intent{Kind: IntentPurchase, Target: "pilot"})
	s.step(ctx, time.Now(), 0)
	nextEvent(t, h)
	if ap := s.GetSnapshot(h.ID).Autopilot; !ap.Unlocked || !ap.Engaged {
		t.Fatalf("expected autopilot unlocked and engaged, got %+v", ap)
	}

	s.SendIntent(h.ID, Intent{Kind: IntentToggleAutopilot})
	s.step(ctx, time.Now(), 0)
	if ev := nextEvent(t, h); ev.Err != nil {
		t.Fatalf("toggle: %v", ev.Err)
	}
	if ap := s.GetSnapshot(h.ID).Autopilot; !ap.Unlocked || ap.Engaged {
		t.Fatalf("expected autopilot disengaged, got %+v", ap)
	}
}

func TestResetDeletesSave(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	s := newTestServer(t, store)
	h := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)
	s.SendIntent(h.ID, Intent{Kind: IntentPurchase, Target: "drill"})
	s.step(ctx, time.Now(), 0)
	nextEvent(t, h)

	s.SendIntent(h.ID, Intent{Kind: IntentReset})
	s.step(ctx, time.Now(), 0)
	if ev := nextEvent(t, h); ev.Err != nil {
		t.Fatalf("reset: %v", ev.Err)
	}

	snap := s.GetSnapshot(h.ID)
	if snap.Resources.Amounts[economy.Metal] != 20 {
		t.Fatalf("expected defaults after reset, got %+v", snap.Resources)
	}
	if _, err := store.Get(ctx, slotFor("alice")); !errors.Is(err, persistence.ErrSlotNotFound) {
		t.Fatalf("expected slot deleted, got %v", err)
	}
}

func TestIdleSessionIsSavedAndReloaded(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	s := newTestServer(t, store, WithIdleTimeout(time.Minute))

	h := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)
	s.SendIntent(h.ID, Intent{Kind: IntentPurchase, Target: "drill"})
	s.step(ctx, time.Now(), 0)

	s.UnregisterClient(h.ID)
	s.step(ctx, time.Now(), 0)
	if len(s.Sessions()) != 1 {
		t.Fatal("session unloaded before the idle timeout")
	}

	s.step(ctx, time.Now().Add(2*time.Minute), 0)
	if len(s.Sessions()) != 0 {
		t.Fatal("idle session still loaded")
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2 := register(t, s, "alice")
	s.step(ctx, time.Now(), 0)
	snap := s.GetSnapshot(h2.ID)
	if snap.Resources.Rates[economy.Metal] != 1 {
		t.Fatalf("expected purchase restored from save, got %+v", snap.Resources)
	}
	for _, n := range snap.Upgrades {
		if n.ID == "drill" && n.State != upgrade.Purchased {
			t.Fatalf("drill not purchased after reload: %s", n.State)
		}
	}
}

func TestCloseSavesEverySession(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	s := newTestServer(t, store)
	register(t, s, "alice")
	register(t, s, "bob")
	s.step(ctx, time.Now(), 0)

	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, p := range []string{"alice", "bob"} {
		if _, err := store.Get(ctx, slotFor(p)); err != nil {
			t.Fatalf("%s not saved: %v", p, err)
		}
	}
}

func TestUnregisterClosesEvents(t *testing.T) {
	s := newTestServer(t, persistence.NewMemoryStore())
	h := register(t, s, "alice")
	s.step(context.Background(), time.Now(), 0)

	s.UnregisterClient(h.ID)
	s.step(context.Background(), time.Now(), 0)

	if _, ok := <-h.EventsCh; ok {
		t.Fatal("expected events channel closed")
	}
	if s.GetSnapshot(h.ID) != nil {
		t.Fatal("snapshot for unregistered client")
	}
}

func TestNormalizePlayer(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"  bob  ", "bob"},
		{"", "pilot"},
		{"\x1b[31mred", "[31mred"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnop"},
	}
	for _, tt := range tests {
		if got := NormalizePlayer(tt.in); got != tt.want {
			t.Errorf("NormalizePlayer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
