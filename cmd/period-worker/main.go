package main

import (
	"context"
	"os"
	"time"

	"cuotas/internal/backend"
	"cuotas/internal/cli"
	applog "cuotas/internal/log"
	"cuotas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting period-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != backend.SQLiteBackend.String() {
		// a memory store is private to its process, nothing to refresh here
		logger.Error("period-worker needs DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	opts, err := backend.ServiceOptions(cfg)
	if err != nil {
		logger.Error("Invalid dues configuration", applog.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	svc := services.NewService(res.Store, res.Events, opts)

	processor := services.NewPeriodProcessor(svc, services.PeriodProcessorConfig{
		Interval: cfg.PeriodRefreshInterval,
	})
	logger.Info("Period processor configured",
		"interval", cfg.PeriodRefreshInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Period processor stop", applog.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Service close error", applog.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start period processor", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Period worker stopped")
}
