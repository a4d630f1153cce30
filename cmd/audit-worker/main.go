package main

import (
	"os"
	"time"

	"github.com/brandonwu32/financedashboard/internal/amqp"
	"github.com/brandonwu32/financedashboard/internal/cli"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/storage"
	"github.com/brandonwu32/financedashboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.AuditDBPath)
	if err != nil {
		logger.Error("Failed to initialize audit database", log.FieldError, err, "path", cfg.AuditDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	w := worker.NewAuditWorker(repo)
	logger.Info("Starting audit worker",
		"queue", cfg.AMQPQueue,
		"db_path", cfg.AuditDBPath)
	if err := w.Run(ctx, client); err != nil {
		logger.Error("Audit worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	handled, failed := w.Stats()
	logger.Info("Audit worker stopped", "handled", handled, "failed", failed)
}
