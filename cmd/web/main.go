package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tomz197/asteroid-idle/internal/config"
	"github.com/tomz197/asteroid-idle/internal/loop"
	"github.com/tomz197/asteroid-idle/internal/loop/web"
)

//go:embed index.html
var htmlPage string

func main() {
	cfg, err := config.Load[config.Web]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger(nil, "web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	rt, err := loop.Start(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to start game server", "err", err)
	}

	page := strings.ReplaceAll(htmlPage, "{{.SSHHost}}", cfg.SSHDisplayHost)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})
	mux.Handle("/ws", web.NewHub(rt.Server, web.WithLogger(logger.WithPrefix("ws"))))

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting web server", "url", "http://"+addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Browsers get the shutdown notice over their socket before the tick stops.
	if err := rt.Stop(ctx, 5*time.Second); err != nil {
		logger.Error("saving sessions failed", "err", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
