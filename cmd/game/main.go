package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/tomz197/asteroid-idle/internal/config"
	"github.com/tomz197/asteroid-idle/internal/loop"
	"github.com/tomz197/asteroid-idle/internal/loop/client"
)

func main() {
	cfg, err := config.Load[config.Game]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The dashboard owns the terminal, so logs go to a file next to the save.
	logFile, err := os.OpenFile("asteroid-idle.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger, err := cfg.NewLogger(logFile, "game")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	rt, err := loop.Start(cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	if err := play(rt, cfg.Player); err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Stop(ctx, 0); err != nil {
		fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		os.Exit(1)
	}
}

// play runs the dashboard on the local terminal in raw mode.
func play(rt *loop.Runtime, player string) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	c, err := client.NewClient(rt.Server, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{Player: player})
	if err != nil {
		return err
	}
	return c.Run()
}
