package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cuotas/internal/amqp"
	"cuotas/internal/backend"
	"cuotas/internal/cli"
	applog "cuotas/internal/log"
	"cuotas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting cuotas-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume ledger events")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// the worker reads the store and consumes events; it never publishes
	bcfg.AMQPURL = ""

	factory := backend.NewFactory(logger.Logger)
	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	res, err := factory.CreateBackend(startCtx, bcfg)
	if err != nil {
		startCancel()
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	mirror, err := factory.CreateMirror(startCtx, bcfg)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	syncWorker := worker.NewSyncWorker(res.Store, mirror.Writer, mirror.Reader)

	// catch up on records whose events were lost while the worker was down
	logger.Info("Performing startup sync check...", "remote_mirror", mirror.Remote)
	if err := syncWorker.StartupSyncCheck(ctx, time.Now().Year()); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	go func() {
		err := client.ConsumeWithRetry(ctx, syncWorker.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
