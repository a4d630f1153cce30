// Package backend assembles the ledger store, event publisher and services
// selected by configuration.
package backend

import (
	"context"
	"fmt"
	"slices"

	"github.com/brandonwu32/financedashboard/internal/config"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/sheets"
	"github.com/brandonwu32/financedashboard/internal/sheets/bolt"
	gsheet "github.com/brandonwu32/financedashboard/internal/sheets/google"
	"github.com/brandonwu32/financedashboard/internal/sheets/memory"
)

// Local backends fall back to these document ids when none are configured.
const (
	LocalRegistryID = "registry"
	LocalTemplateID = "template"
)

// Store is an opened ledger store plus the registry and template it
// should use.
type Store struct {
	sheets.LedgerStore
	Kind       string
	RegistryID string
	TemplateID string

	close func() error
}

// Close releases the underlying store, if it holds anything.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Kinds returns every accepted LEDGER_BACKEND value.
func Kinds() []string {
	return []string{config.BackendMemory, config.BackendGoogle, config.BackendBolt}
}

// OpenStore opens the configured ledger store. Local stores get an empty
// registry and a blank template on first use.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBackend)

	kind := cfg.LedgerBackend
	if !slices.Contains(Kinds(), kind) {
		return nil, fmt.Errorf("invalid backend type: %s", kind)
	}

	st := &Store{
		Kind:       kind,
		RegistryID: firstNonEmpty(cfg.RegistrySpreadsheetID, LocalRegistryID),
		TemplateID: firstNonEmpty(cfg.TemplateSpreadsheetID, LocalTemplateID),
	}

	switch kind {
	case config.BackendGoogle:
		client, err := gsheet.New(ctx, gsheet.Credentials{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		st.LedgerStore = client
		// Google has no implicit template; onboarding info reports it missing.
		st.RegistryID = cfg.RegistrySpreadsheetID
		st.TemplateID = cfg.TemplateSpreadsheetID
		logger.Info("Initialized Google Sheets backend", "registry_id", st.RegistryID)

	case config.BackendBolt:
		db, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		for _, d := range []*sheets.Document{
			sheets.NewRegistryDocument(st.RegistryID),
			sheets.NewLedgerDocument(st.TemplateID, "Finance Dashboard Template"),
		} {
			if err := db.EnsureDocument(d); err != nil {
				db.Close()
				return nil, fmt.Errorf("seed %s: %w", d.ID, err)
			}
		}
		st.LedgerStore = db
		st.close = db.Close
		logger.Info("Initialized bolt backend", "path", cfg.BoltPath)

	case config.BackendMemory:
		mem, err := memory.NewFromFile(cfg.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory seed: %w", err)
		}
		if _, ok := mem.Document(st.RegistryID); !ok {
			mem.Put(sheets.NewRegistryDocument(st.RegistryID))
		}
		if _, ok := mem.Document(st.TemplateID); !ok {
			mem.Put(sheets.NewLedgerDocument(st.TemplateID, "Finance Dashboard Template"))
		}
		st.LedgerStore = mem
		logger.Info("Initialized memory backend", "seed_file", cfg.MemorySeedFile)
	}
	return st, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
