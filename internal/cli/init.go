// Package cli provides common CLI initialization utilities shared by the
// server, the audit worker and ledgerctl.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brandonwu32/financedashboard/internal/config"
	"github.com/brandonwu32/financedashboard/internal/log"
)

// SetupLogger builds a logger from LOG_LEVEL and LOG_FORMAT and installs it
// as the process default. An unknown level falls back to info with a
// warning.
func SetupLogger(component string) *log.Logger {
	return setupLogger(os.Stdout, component, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func setupLogger(w io.Writer, component, level, format string) *log.Logger {
	lvl, levelErr := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Format:    format,
		Component: component,
		Handler:   log.NewHandler(w, format, lvl),
	})
	log.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Ignoring LOG_LEVEL", log.FieldError, levelErr)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM after cleanup has
// run or timeout has passed, whichever comes first; done closes after that.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
