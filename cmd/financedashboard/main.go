package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/brandonwu32/financedashboard/internal/backend"
	"github.com/brandonwu32/financedashboard/internal/cache"
	"github.com/brandonwu32/financedashboard/internal/cli"
	apphttp "github.com/brandonwu32/financedashboard/internal/http"
	"github.com/brandonwu32/financedashboard/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	cadence, err := cfg.Cadence()
	if err != nil {
		logger.Error("Invalid default cadence", log.FieldError, err)
		os.Exit(1)
	}

	b, err := backend.Open(context.Background(), cfg, backend.Options{Logger: logger})
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	defer b.Close()

	caches := cache.NewManager()
	for _, c := range b.Ledger.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(time.Minute)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Access: b.Access,
		Ledger: b.Ledger,
		Logger: logger,
	}, apphttp.Options{
		IdentityHeader:     cfg.IdentityHeader,
		Allow:              cfg.Allowed,
		TrustedProxies:     cfg.TrustedProxies,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     int64(cfg.MaxUploadMB) << 20,
		DefaultCadence:     cadence,
		StoreTimeout:       cfg.StoreTimeout,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
	})

	logger.Info("Starting financedashboard server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"default_cadence", cadence,
		"anchor", b.Ledger.Anchor())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
