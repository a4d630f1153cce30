package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/brandonwu32/financedashboard/internal/config"
)

// Settings is the optional ledgerctl.toml file. Environment variables win
// over anything set here.
type Settings struct {
	Backend     string `toml:"backend"`
	RegistryID  string `toml:"registry_id,omitempty"`
	TemplateID  string `toml:"template_id,omitempty"`
	BoltPath    string `toml:"bolt_path,omitempty"`
	SeedFile    string `toml:"seed_file,omitempty"`
	AuditDBPath string `toml:"audit_db_path,omitempty"`
	Admin       string `toml:"admin,omitempty"`
}

// SettingsDir returns the XDG-compliant config directory.
func SettingsDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "financedashboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "financedashboard")
}

// SettingsPath returns the full path to the settings file.
func SettingsPath() string {
	return filepath.Join(SettingsDir(), "ledgerctl.toml")
}

// LoadSettings reads path, returning zero settings if it doesn't exist.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes s to path, creating the directory.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating settings file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

// Apply copies settings into cfg for every value its environment variable
// leaves empty.
func (s Settings) Apply(cfg *config.Config) {
	fill := func(env string, dst *string, v string) {
		if v != "" && os.Getenv(env) == "" {
			*dst = v
		}
	}
	fill("LEDGER_BACKEND", &cfg.LedgerBackend, s.Backend)
	fill("USER_REGISTRY_SPREADSHEET_ID", &cfg.RegistrySpreadsheetID, s.RegistryID)
	fill("TEMPLATE_SPREADSHEET_ID", &cfg.TemplateSpreadsheetID, s.TemplateID)
	fill("BOLT_PATH", &cfg.BoltPath, s.BoltPath)
	fill("MEMORY_SEED_FILE", &cfg.MemorySeedFile, s.SeedFile)
	fill("AUDIT_DB_PATH", &cfg.AuditDBPath, s.AuditDBPath)
}

// AdminEmail prefers LEDGERCTL_ADMIN over the settings file.
func (s Settings) AdminEmail() string {
	if v := os.Getenv("LEDGERCTL_ADMIN"); v != "" {
		return v
	}
	return s.Admin
}
