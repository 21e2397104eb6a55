// Package loop wires the save store, the tech tree and the game server
// together and runs the server tick until the process stops.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/asteroid-idle/internal/config"
	"github.com/tomz197/asteroid-idle/internal/loop/server"
	"github.com/tomz197/asteroid-idle/internal/persistence"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// MemoryDB as SaveDB keeps saves in memory for the life of the process.
const MemoryDB = ":memory:"

// Runtime is a running game server and the store it saves to.
type Runtime struct {
	Server *server.Server

	store  persistence.Store
	closer io.Closer
	logger *log.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Start opens the store named by cfg, loads the catalog and starts the
// server loop in the background.
func Start(cfg config.Storage, logger *log.Logger, opts ...server.Option) (*Runtime, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	catalog, err := upgrade.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	rt := &Runtime{logger: logger, done: make(chan struct{})}
	if cfg.SaveDB == MemoryDB {
		rt.store = persistence.NewMemoryStore()
	} else {
		db, err := persistence.OpenSQLite(cfg.SaveDB)
		if err != nil {
			return nil, err
		}
		rt.store, rt.closer = db, db
	}

	base := []server.Option{
		server.WithCatalog(catalog),
		server.WithStore(rt.store),
		server.WithLogger(logger.WithPrefix("server")),
	}
	if cfg.AutosaveInterval > 0 {
		base = append(base, server.WithAutosaveInterval(cfg.AutosaveInterval))
	}
	srv, err := server.NewServer(append(base, opts...)...)
	if err != nil {
		rt.closeStore()
		return nil, fmt.Errorf("create server: %w", err)
	}
	rt.Server = srv

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	go func() {
		defer close(rt.done)
		srv.Run(ctx)
	}()

	logger.Info("game server started", "catalog", catalog.Len(), "save_db", cfg.SaveDB, "autosave", cfg.AutosaveInterval)
	return rt, nil
}

// Stop tells connected clients the server is going down, waits up to
// notify for them to leave, then stops the tick, saves every session and
// closes the store.
func (rt *Runtime) Stop(ctx context.Context, notify time.Duration) error {
	if notify > 0 {
		rt.logger.Info("notifying connected players about shutdown")
		rt.Server.Shutdown(notify)
	}
	rt.cancel()
	<-rt.done

	err := rt.Server.Close(ctx)
	if cerr := rt.closeStore(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	rt.logger.Info("game server stopped")
	return err
}

func (rt *Runtime) closeStore() error {
	if rt.closer == nil {
		return nil
	}
	if err := rt.closer.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
