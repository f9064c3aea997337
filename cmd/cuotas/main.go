package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cuotas/internal/auth"
	"cuotas/internal/backend"
	"cuotas/internal/cache"
	"cuotas/internal/cli"
	apphttp "cuotas/internal/http"
	applog "cuotas/internal/log"
	"cuotas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger.Logger).CreateBackend(startCtx, bcfg)
	startCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc := services.NewService(res.Store, res.Events, opts)

	provider := auth.NewLocalProvider(res.Store)
	if err := provider.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("Failed to provision admin user", applog.FieldError, err)
		os.Exit(1)
	}

	sessions := auth.NewSessionManager(cfg.SessionCacheSize, cfg.SessionTTL)
	caches := cache.NewManager()
	caches.Register(sessions.Cleaner())

	processor := services.NewPeriodProcessor(svc, services.PeriodProcessorConfig{
		Interval: cfg.PeriodRefreshInterval,
	})

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Ledger:             svc,
		Auth:               provider,
		Sessions:           sessions,
		SessionTTL:         cfg.SessionTTL,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Period processor stop", applog.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
		requests, limited := srv.Metrics()
		logger.Info("Request totals",
			"requests", requests.TotalRequests,
			"server_errors", requests.ServerErrors,
			"rate_limited", limited.Rejected)
	})

	caches.StartCleanup(ctx, 10*time.Minute)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start period processor", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting cuotas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"fee", opts.Fee.String(),
		"fee_policy", cfg.FeePolicy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
