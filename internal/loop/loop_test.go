package loop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomz197/asteroid-idle/internal/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

func waitSnapshot(t *testing.T, srv *server.Server, id int) *server.SessionSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := srv.GetSnapshot(id); snap != nil {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no snapshot published")
	return nil
}

func TestRuntimePersistsAcrossRestarts(t *testing.T) {
	cfg := config.Storage{SaveDB: filepath.Join(t.TempDir(), "saves.db"), AutosaveInterval: time.Hour}

	rt, err := Start(cfg, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h, err := rt.Server.RegisterClient("ana")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	waitSnapshot(t, rt.Server, h.ID)

	rt.Server.SendIntent(h.ID, server.Intent{Kind: server.IntentPurchase, Target: "basic_drill"})
	select {
	case ev := <-h.EventsCh:
		if ev.Err != nil {
			t.Fatalf("purchase failed: %v", ev.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no intent result")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Stop(ctx, 0); err != nil {
		t.Fatalf("stop: %v", err)
	}

	rt, err = Start(cfg, nil)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer rt.Stop(ctx, 0)

	h, err = rt.Server.RegisterClient("ana")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	snap := waitSnapshot(t, rt.Server, h.ID)
	for _, n := range snap.Upgrades {
		if n.ID == "basic_drill" {
			if n.State != upgrade.Purchased {
				t.Fatalf("basic_drill not restored, state %s", n.State)
			}
			return
		}
	}
	t.Fatal("basic_drill missing from snapshot")
}

func TestStartRejectsMissingCatalog(t *testing.T) {
	_, err := Start(config.Storage{SaveDB: MemoryDB, CatalogPath: filepath.Join(t.TempDir(), "nope.yaml")}, nil)
	if err == nil {
		t.Fatal("expected error for a missing catalog file")
	}
}

func TestStartInMemory(t *testing.T) {
	rt, err := Start(config.Storage{SaveDB: MemoryDB}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h, err := rt.Server.RegisterClient("")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if snap := waitSnapshot(t, rt.Server, h.ID); snap.Player != "pilot" {
		t.Fatalf("unexpected player %q", snap.Player)
	}
	if err := rt.Stop(context.Background(), 0); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
