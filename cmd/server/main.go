// Command main is the entry point for the microblog backend server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microblog/internal/bootstrap"
	"microblog/internal/config"
	"microblog/internal/middleware"
	"microblog/internal/observability"
	"microblog/internal/server"
)

const shutdownGrace = 10 * time.Second

// @title Microblog API
// @version 1.0
// @description Microblogging API with follows, a personal feed and per-post sentiment labels.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "microblog-api",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Seed: cfg.SeedOnStart})
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)
	go func() { served <- srv.Start() }()

	select {
	case err := <-served:
		return err
	case <-sigCtx.Done():
	}

	middleware.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		middleware.Logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(ctx); err != nil {
		middleware.Logger.Error("tracing flush error", slog.String("error", err.Error()))
	}
	return <-served
}
