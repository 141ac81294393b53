// Command server runs the laser-hockey competition server: a WebSocket
// endpoint for clients, a periodic maintenance task, and (unless
// --non-interactive is set) a stdin admin console.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/laserhockey/competition-server/internal/admin"
	"github.com/laserhockey/competition-server/internal/auth"
	"github.com/laserhockey/competition-server/internal/env"
	"github.com/laserhockey/competition-server/internal/matchmaker"
	"github.com/laserhockey/competition-server/internal/persistence"
	"github.com/laserhockey/competition-server/internal/server"
	"github.com/laserhockey/competition-server/internal/transport"
)

func main() {
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func run(ctx context.Context, cfg *Config) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	store := persistence.NewStore(cfg.workingDir)
	mm := matchmaker.New(cfg.seed)
	rt, err := server.New(log, store, mm, func() env.Environment { return env.NewHockeyEnv(cfg.seed) })
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	checker, err := auth.Load(filepath.Join(cfg.workingDir, "users.db"))
	if err != nil {
		return fmt.Errorf("auth.Load: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(runCtx) }()

	handler := transport.NewHandler(rt, checker, log)
	mux := http.NewServeMux()
	mux.Handle("/ws", handler)

	addr := fmt.Sprintf("%s:%d", cfg.bind, cfg.port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	if !cfg.nonInteractive {
		console := admin.New(rt, os.Stdin, os.Stdout, log)
		go console.Run()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var finalErr error
	select {
	case <-sig:
		log.Info("shutdown requested")
		rt.RequestShutdown()
		finalErr = <-runErr
	case finalErr = <-runErr:
		if finalErr != nil {
			log.Error("runtime stopped unexpectedly", "error", finalErr)
		}
	}
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}

	log.Info("server stopped")
	return nil
}
