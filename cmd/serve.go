package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/skipvote_bot/config"
	deps "github.com/bwise1/skipvote_bot/internal/debs"
	api "github.com/bwise1/skipvote_bot/internal/http/rest"
	"github.com/spf13/cobra"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(slog.Default())
		},
	}
}

func serve(logger *slog.Logger) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := deps.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.DB.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare database schema", "error", err)
		return err
	}
	if err := d.Store.Ping(ctx); err != nil {
		// not fatal: the shared client reconnects once redis is back
		logger.Warn("vote store not reachable at startup", "error", err)
	}

	a := &api.API{
		Config: cfg,
		Deps:   d,
		Logger: logger,
	}
	a.Init()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server running", "port", cfg.Port)
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-errChan:
		return err
	case <-stopChan:
	}

	logger.Info("request to shutdown server", "grace", allowConnectionsAfterShutdown)
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	logger.Info("shutting down server")
	return a.Shutdown()
}
