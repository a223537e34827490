package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/duet/internal/app"
	"github.com/apresai/duet/internal/config"
	"github.com/apresai/duet/internal/mcpserver"
	"github.com/apresai/duet/internal/observability"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		observability.InitLogger("info", "json").Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.InitLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("duet MCP server starting...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, shutdownTracing, err := app.Bootstrap(ctx, cfg, version, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()
	defer a.Close()

	baseCtx, cancelTurns := context.WithCancel(context.Background())
	defer cancelTurns()

	srv := mcpserver.New(a.Service, baseCtx, cfg.MCP.Port, version, logger)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("Shutdown signal received, waiting for active turns...")
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	<-stopped
	logger.Info("Shutdown complete")
}
