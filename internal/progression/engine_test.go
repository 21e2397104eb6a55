package progression

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

func scenarioCatalog() *upgrade.Catalog {
	return upgrade.MustCatalog([]upgrade.Node{
		{
			ID:     "drill",
			Cost:   economy.Amounts{economy.Metal: 10, economy.Crystal: 5},
			Effect: upgrade.Effect{Kind: upgrade.AddRate, Resource: economy.Metal, Value: 0.5},
		},
		{
			ID:     "scanner",
			Cost:   economy.Amounts{economy.Metal: 1},
			Effect: upgrade.Effect{Kind: upgrade.AddStat, Stat: economy.AttackRange, Value: 5},
		},
		{
			ID:       "laser",
			Requires: []upgrade.ID{"drill"},
			Cost:     economy.Amounts{economy.Metal: 1},
			Effect:   upgrade.Effect{Kind: upgrade.ScaleStat, Stat: economy.MiningPower, Value: 2},
		},
		{
			ID:       "capstone",
			Requires: []upgrade.ID{"drill", "scanner"},
			Cost:     economy.Amounts{economy.Crystal: 1},
			Effect: upgrade.Effect{Kind: upgrade.Compound, Effects: []upgrade.Effect{
				{Kind: upgrade.AddStat, Stat: economy.MultiAttack, Value: 1},
				{Kind: upgrade.Grant, Resource: economy.Metal, Value: 100},
			}},
		},
	})
}

func newEngine(amounts economy.Amounts) *Engine {
	return New(scenarioCatalog(), WithDefaults(Defaults{Amounts: amounts}))
}

func TestPurchaseScenarioA(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 20, economy.Crystal: 10})
	rateBefore := e.Resources().Rates[economy.Metal]

	if err := e.Purchase("drill"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	res := e.Resources()
	if res.Amounts[economy.Metal] != 10 || res.Amounts[economy.Crystal] != 5 {
		t.Fatalf("unexpected balances %v", res.Amounts)
	}
	if got := res.Rates[economy.Metal] - rateBefore; got != 0.5 {
		t.Fatalf("expected metal rate +0.5, got +%g", got)
	}
	if !e.Purchased("drill") {
		t.Fatal("drill should be purchased")
	}
}

func TestPurchaseTwiceScenarioB(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 100, economy.Crystal: 100})
	if err := e.Purchase("drill"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	before := e.Export()

	err := e.Purchase("drill")
	if !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}
	assertSameState(t, before, e.Export())
}

func TestLockedNodeScenarioC(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 1e6, economy.Crystal: 1e6})

	if e.CanAfford("laser") {
		t.Fatal("locked node reported affordable")
	}
	before := e.Export()
	if err := e.Purchase("laser"); !errors.Is(err, ErrPrerequisiteUnmet) {
		t.Fatalf("expected ErrPrerequisiteUnmet, got %v", err)
	}
	assertSameState(t, before, e.Export())
}

func TestInsufficientScenarioD(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 5, economy.Crystal: 5})
	before := e.Export()

	err := e.Purchase("drill")
	if !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
	assertSameState(t, before, e.Export())
	if e.Purchased("drill") {
		t.Fatal("drill flagged purchased after failed purchase")
	}
}

func TestCapstoneScenarioE(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 100, economy.Crystal: 100})

	if err := e.Purchase("drill"); err != nil {
		t.Fatalf("purchase drill: %v", err)
	}
	if st, _ := e.State("capstone"); st != upgrade.Locked {
		t.Fatalf("capstone should be locked with one prerequisite, got %s", st)
	}
	if err := e.Purchase("capstone"); !errors.Is(err, ErrPrerequisiteUnmet) {
		t.Fatalf("expected ErrPrerequisiteUnmet, got %v", err)
	}

	if err := e.Purchase("scanner"); err != nil {
		t.Fatalf("purchase scanner: %v", err)
	}
	if st, _ := e.State("capstone"); st != upgrade.Available {
		t.Fatalf("capstone should be available, got %s", st)
	}
	metal := e.Resources().Amounts[economy.Metal]
	if err := e.Purchase("capstone"); err != nil {
		t.Fatalf("purchase capstone: %v", err)
	}

	if got := e.Stats().MultiAttack(); got != 2 {
		t.Fatalf("expected multi attack 2, got %d", got)
	}
	if got := e.Resources().Amounts[economy.Metal]; got != metal+100 {
		t.Fatalf("expected grant of 100 metal, got %g -> %g", metal, got)
	}
}

func TestTickScenarioF(t *testing.T) {
	e := New(scenarioCatalog(), WithDefaults(Defaults{Rates: economy.Amounts{economy.Metal: 0.5}}))

	e.Tick(1000 * time.Millisecond)

	if got := e.Resources().Amounts[economy.Metal]; got != 0.5 {
		t.Fatalf("expected 0.5 metal, got %g", got)
	}

	e.Tick(0)
	if got := e.Resources().Amounts[economy.Metal]; got != 0.5 {
		t.Fatalf("tick(0) changed metal to %g", got)
	}
}

func TestPurchaseUnknown(t *testing.T) {
	e := newEngine(nil)
	if err := e.Purchase("warp_drive"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected ErrUnknownUpgrade, got %v", err)
	}
	if e.CanAfford("warp_drive") {
		t.Fatal("unknown node reported affordable")
	}
	if _, err := e.State("warp_drive"); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected ErrUnknownUpgrade from State, got %v", err)
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	cat := scenarioCatalog()
	e := New(cat, WithDefaults(Defaults{Rates: economy.Amounts{economy.Metal: 3, economy.Crystal: 1}}))
	rng := rand.New(rand.NewSource(7))
	ids := cat.IDs()

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			e.Tick(time.Duration(rng.Intn(500)) * time.Millisecond)
		case 1:
			_ = e.Purchase(ids[rng.Intn(len(ids))])
		case 2:
			_ = e.Credit(economy.Resources[rng.Intn(2)], rng.Float64()*10-8)
		case 3:
			_ = e.Spend(economy.Amounts{economy.Metal: rng.Float64() * 5})
		}

		for k, v := range e.Resources().Amounts {
			if v < 0 {
				t.Fatalf("step %d: %s went negative: %g", i, k, v)
			}
		}
		for _, n := range e.Nodes() {
			if n.State != upgrade.Purchased {
				continue
			}
			for _, req := range n.Requires {
				if !e.Purchased(req) {
					t.Fatalf("step %d: %s purchased without %s", i, n.ID, req)
				}
			}
		}
	}
}

func TestConcurrentTickAndPurchase(t *testing.T) {
	e := New(scenarioCatalog(), WithDefaults(Defaults{Rates: economy.Amounts{economy.Metal: 100, economy.Crystal: 100}}))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.Tick(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			for _, id := range e.Available() {
				_ = e.Purchase(id)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = e.Credit(economy.Metal, -0.01)
			_ = e.Stats()
		}
	}()
	wg.Wait()

	for k, v := range e.Resources().Amounts {
		if v < 0 {
			t.Fatalf("%s went negative: %g", k, v)
		}
	}
}

func TestCreditAndSpend(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 5})

	if err := e.Credit(economy.Crystal, 3); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := e.Spend(economy.Amounts{economy.Metal: 5, economy.Crystal: 4}); !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("expected ErrInsufficientResources, got %v", err)
	}
	if err := e.Spend(economy.Amounts{economy.Metal: 5, economy.Crystal: 3}); err != nil {
		t.Fatalf("spend: %v", err)
	}
	res := e.Resources().Amounts
	if res[economy.Metal] != 0 || res[economy.Crystal] != 0 {
		t.Fatalf("unexpected balances %v", res)
	}
}

func TestSetStat(t *testing.T) {
	e := newEngine(nil)
	if err := e.SetStat(economy.Autopilot, 1); err != nil {
		t.Fatalf("set stat: %v", err)
	}
	if !e.Stats().AutopilotEnabled() {
		t.Fatal("autopilot should be enabled")
	}
	if err := e.SetStat(economy.AutoCollect, 3); err != nil {
		t.Fatalf("set stat: %v", err)
	}
	if got := e.Stats().AutoCollect(); got != 1 {
		t.Fatalf("expected probability clamp to 1, got %g", got)
	}
	if err := e.SetStat("warp", 1); !errors.Is(err, economy.ErrUnknownStat) {
		t.Fatalf("expected ErrUnknownStat, got %v", err)
	}
}

func TestReset(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 20, economy.Crystal: 10})
	if err := e.Purchase("drill"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	e.Reset()

	if e.Purchased("drill") {
		t.Fatal("reset kept purchased flag")
	}
	res := e.Resources()
	if res.Amounts[economy.Metal] != 20 || res.Rates[economy.Metal] != 0 {
		t.Fatalf("reset did not restore defaults: %+v", res)
	}
}

func TestNodesView(t *testing.T) {
	e := newEngine(economy.Amounts{economy.Metal: 10, economy.Crystal: 5})

	byID := map[upgrade.ID]NodeStatus{}
	for _, n := range e.Nodes() {
		byID[n.ID] = n
	}
	if n := byID["drill"]; n.State != upgrade.Available || !n.Affordable {
		t.Fatalf("unexpected drill status %+v", n)
	}
	if n := byID["laser"]; n.State != upgrade.Locked || n.Affordable {
		t.Fatalf("unexpected laser status %+v", n)
	}
	if got := byID["drill"].Children; len(got) != 2 {
		t.Fatalf("expected drill to unlock two nodes, got %v", got)
	}
}

func assertSameState(t *testing.T, want, got State) {
	t.Helper()
	for _, k := range economy.Resources {
		if want.Resources.Amounts[k] != got.Resources.Amounts[k] {
			t.Fatalf("%s amount changed: %g -> %g", k, want.Resources.Amounts[k], got.Resources.Amounts[k])
		}
		if want.Resources.Rates[k] != got.Resources.Rates[k] {
			t.Fatalf("%s rate changed: %g -> %g", k, want.Resources.Rates[k], got.Resources.Rates[k])
		}
	}
	for s, v := range want.Stats {
		if got.Stats[s] != v {
			t.Fatalf("stat %s changed: %g -> %g", s, v, got.Stats[s])
		}
	}
	if len(want.Purchased) != len(got.Purchased) {
		t.Fatalf("purchased set changed: %v -> %v", want.Purchased, got.Purchased)
	}
}
