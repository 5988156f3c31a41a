// Package main provides the entry point for the submission daemon. It wires
// the network client, the submission pipeline and the HTTP gateway through
// the service registry and handles graceful shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/meridianledger/meridian-go/internal/gateway"
	"github.com/meridianledger/meridian-go/internal/journal"
	"github.com/meridianledger/meridian-go/internal/pipeline"
	"github.com/meridianledger/meridian-go/pkg/config"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/metrics"
	"github.com/meridianledger/meridian-go/pkg/rpc"
	"github.com/meridianledger/meridian-go/pkg/service"
	"github.com/meridianledger/meridian-go/pkg/submit"
)

func main() {
	configFile := pflag.String("config", "", "Path to configuration file")
	envFile := pflag.String("env-file", ".env", "Path to .env file")
	logLevel := pflag.String("log-level", "", "Log level (debug, info, warn, error)")
	nodeURL := pflag.String("node", "", "Ledger node URL (overrides config)")
	pflag.Parse()

	opts := config.DefaultLoadOptions()
	opts.ConfigFile = *configFile
	opts.EnvFile = *envFile

	cfg, err := config.LoadWithOptions(opts)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *nodeURL != "" {
		cfg.Node.URL = *nodeURL
	}

	logger := logging.New(logging.Config{
		Level:       logging.LogLevel(cfg.Log.Level),
		Output:      os.Stdout,
		ServiceName: "submitd",
		Environment: cfg.Log.Environment,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.New(metrics.Config{
		Namespace:   cfg.Metrics.Namespace,
		ServiceName: "submitd",
	})

	client := rpc.NewHTTPClient(cfg.Node.URL,
		rpc.WithLogger(logger),
		rpc.WithRequestTimeout(cfg.Node.RequestTimeout),
		rpc.WithMetrics(metricsCollector),
	)

	submitter := submit.New(client,
		submit.WithPollInterval(cfg.Submit.PollInterval),
		submit.WithSignatureVerification(cfg.Submit.VerifySignatures),
		submit.WithLogger(logger),
		submit.WithMetrics(metricsCollector),
	)

	jnl, err := journal.NewRedisJournal(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to initialize outcome journal", "error", err)
		os.Exit(1)
	}
	defer jnl.Close()

	registry := service.NewRegistry(logger)

	logger.Info("Initializing services")

	pipe, err := pipeline.New(ctx, cfg, submitter, jnl, logger)
	if err != nil {
		logger.Error("Failed to initialize submission pipeline", "error", err)
		os.Exit(1)
	}
	if err := registry.Register(pipeline.NewService(pipe)); err != nil {
		logger.Error("Failed to register submission pipeline", "error", err)
		os.Exit(1)
	}

	gw := gateway.NewServer(cfg, client, submitter, jnl, logger, metricsCollector)
	if err := registry.Register(gateway.NewService(gw)); err != nil {
		logger.Error("Failed to register gateway", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting all services")
	if err := registry.StartAll(ctx); err != nil {
		logger.Error("Failed to start services", "error", err)
		os.Exit(1)
	}
	logger.Info("All services started", "node", cfg.Node.URL)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Info("Shutting down", "signal", sig.String())

	cancel()
	if err := registry.StopAll(context.Background()); err != nil {
		logger.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
