package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/coordinator"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/config"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/logging"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to a TOML or YAML config file")
	backendURL := flag.String("backend", "", "Processing backend base URL")
	port := flag.String("port", "", "Observer API port")
	decision := flag.String("decision", "", "Startup checkpoint decision: ask, resume or restart")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}
	if *port != "" {
		cfg.Observer.Port = *port
	}
	if *decision != "" {
		cfg.Processing.Decision = *decision
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.FromSettings(cfg.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Coordinator stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	metrics := monitoring.NewMetrics()

	coord, err := coordinator.New(cfg, logger, metrics)
	if err != nil {
		return err
	}
	srv := server.New(cfg, coord, logger.Component("server"), metrics)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting coordinator",
		zap.String("backend", cfg.Backend.URL),
		zap.String("observer", cfg.Observer.Addr()),
		zap.String("decision", cfg.Processing.Decision))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coord.Run(gctx)
	})
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
