package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandonwu32/financedashboard/internal/amqp"
	"github.com/brandonwu32/financedashboard/internal/config"
	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/parser"
	"github.com/brandonwu32/financedashboard/internal/registry"
	"github.com/brandonwu32/financedashboard/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend is everything a binary needs to serve or administer ledgers.
type Backend struct {
	Store  *Store
	Events core.EventPublisher
	Access *registry.Service
	Ledger *services.LedgerService

	cleanups []CleanupFunc
}

// Options override process-level collaborators. Zero values are fine.
type Options struct {
	Logger *log.Logger
	Now    func() time.Time
	// Events replaces the publisher built from AMQP_URL.
	Events core.EventPublisher
	// SkipParser leaves document parsing and archiving unconfigured.
	SkipParser bool
}

// Open builds the store, the optional event publisher, the optional
// statement parser and archiver, and both services on top of them.
// AMQP and GCS failures degrade to warnings; a bad store is fatal.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(log.ComponentBackend)

	anchor, err := cfg.Anchor()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	b := &Backend{Store: store}
	b.cleanups = append(b.cleanups, store.Close)

	b.Events = opts.Events
	if b.Events == nil {
		b.Events = b.openEvents(cfg, logger)
	}

	var docParser parser.DocumentParser
	var archiver parser.Archiver
	if !opts.SkipParser {
		docParser, archiver = b.openParser(ctx, cfg, logger)
	}

	b.Access = registry.NewService(store, registry.Options{
		RegistryID:          store.RegistryID,
		TemplateID:          store.TemplateID,
		ServiceAccountEmail: cfg.ServiceAccountEmail,
		Events:              b.Events,
		Now:                 opts.Now,
	})
	b.Ledger = services.NewLedgerService(b.Access, store, services.LedgerOptions{
		Events:           b.Events,
		Anchor:           anchor,
		Now:              opts.Now,
		CacheTTL:         cfg.CacheTTL,
		Parser:           docParser,
		Archiver:         archiver,
		ParseConcurrency: cfg.ParseConcurrency,
		Logger:           opts.Logger,
	})
	return b, nil
}

func (b *Backend) openEvents(cfg *config.Config, logger *log.Logger) core.EventPublisher {
	if cfg.AMQPURL == "" {
		return core.NopPublisher{}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return core.NopPublisher{}
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	b.cleanups = append(b.cleanups, client.Close)
	return client
}

func (b *Backend) openParser(ctx context.Context, cfg *config.Config, logger *log.Logger) (parser.DocumentParser, parser.Archiver) {
	var docParser parser.DocumentParser
	if cfg.GeminiAPIKey != "" {
		g, err := parser.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Document parsing disabled", log.FieldError, err)
		} else {
			docParser = g
			logger.Info("Initialized Gemini parser", "model", cfg.GeminiModel)
		}
	}

	var archiver parser.Archiver
	if cfg.ArchiveBucket != "" {
		a, err := parser.NewGCSArchiver(ctx, cfg.ArchiveBucket)
		if err != nil {
			logger.Warn("Statement archiving disabled", log.FieldError, err)
		} else {
			archiver = a
			b.cleanups = append(b.cleanups, a.Close)
			logger.Info("Initialized statement archive", "bucket", cfg.ArchiveBucket)
		}
	}
	return docParser, archiver
}

// Close runs every cleanup in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	if len(errs) > 0 {
		return fmt.Errorf("close backend: %w", errors.Join(errs...))
	}
	return nil
}
