package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
)

// Backends accepted by LEDGER_BACKEND.
const (
	BackendMemory = "memory"
	BackendGoogle = "google"
	BackendBolt   = "bolt"
)

var validBackends = []string{BackendMemory, BackendGoogle, BackendBolt}

type Config struct {
	// HTTP Server
	Port               string
	MaxUploadMB        int
	RateLimitPerMinute int
	StoreTimeout       time.Duration

	// Identity
	IdentityHeader string
	AllowedEmails  []string
	TrustedProxies []string

	// Ledger backend
	LedgerBackend  string
	MemorySeedFile string
	BoltPath       string

	// Google Sheets and Drive
	RegistrySpreadsheetID    string
	TemplateSpreadsheetID    string
	ServiceAccountEmail      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Periods
	BiweeklyAnchor string
	DefaultCadence string
	CacheTTL       time.Duration

	// Statement parsing
	GeminiAPIKey     string
	GeminiModel      string
	ParseConcurrency int
	ArchiveBucket    string

	// AMQP and audit
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	AuditDBPath  string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 20),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		StoreTimeout:       getEnvDuration("STORE_TIMEOUT", 10*time.Second),

		IdentityHeader: getEnv("IDENTITY_HEADER", "X-Forwarded-Email"),
		AllowedEmails:  getEnvList("ALLOWED_EMAILS"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LedgerBackend:  strings.ToLower(getEnv("LEDGER_BACKEND", BackendMemory)),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),
		BoltPath:       getEnv("BOLT_PATH", "./data/ledgers.db"),

		RegistrySpreadsheetID:    getEnv("USER_REGISTRY_SPREADSHEET_ID", ""),
		TemplateSpreadsheetID:    getEnv("TEMPLATE_SPREADSHEET_ID", ""),
		ServiceAccountEmail:      getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		BiweeklyAnchor: getEnv("BIWEEKLY_ANCHOR", "2026-01-30"),
		DefaultCadence: strings.ToLower(getEnv("DEFAULT_CADENCE", string(core.Biweekly))),
		CacheTTL:       getEnvDuration("CACHE_TTL", 30*time.Second),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ParseConcurrency: getEnvInt("PARSE_CONCURRENCY", 4),
		ArchiveBucket:    getEnv("STATEMENT_ARCHIVE_BUCKET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financedashboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "audit_events"),
		AuditDBPath:  getEnv("AUDIT_DB_PATH", "./data/audit.db"),
	}
}

// Anchor parses BIWEEKLY_ANCHOR as an ISO date.
func (c *Config) Anchor() (dates.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(c.BiweeklyAnchor))
	if err != nil {
		return dates.Date{}, fmt.Errorf("invalid biweekly anchor '%s': must be YYYY-MM-DD", c.BiweeklyAnchor)
	}
	return dates.FromTime(t), nil
}

// Cadence returns the parsed DEFAULT_CADENCE.
func (c *Config) Cadence() (core.Cadence, error) {
	return core.ParseCadence(c.DefaultCadence)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	switch c.LedgerBackend {
	case BackendBolt:
		if c.BoltPath == "" {
			errors = append(errors, "bolt path cannot be empty when using bolt backend")
		} else if err := ensureDir(c.BoltPath); err != nil {
			errors = append(errors, err.Error())
		}
	case BackendGoogle:
		if c.RegistrySpreadsheetID == "" {
			errors = append(errors, "USER_REGISTRY_SPREADSHEET_ID is required when using google backend")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
		hasClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		hasToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
		if !hasServiceAccount && !(hasClient && hasToken) {
			errors = append(errors, "google backend needs a service account (GOOGLE_SERVICE_ACCOUNT_JSON or _FILE) or an OAuth client and token")
		}
		for _, f := range []struct{ name, path string }{
			{"service account", c.GoogleServiceAccountFile},
			{"OAuth client", c.GoogleOAuthClientFile},
			{"OAuth token", c.GoogleOAuthTokenFile},
		} {
			if f.path == "" {
				continue
			}
			if _, err := os.Stat(f.path); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google %s file does not exist: %s", f.name, f.path))
			}
		}
	}

	if _, err := c.Anchor(); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := c.Cadence(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default cadence '%s': must be one of %v", c.DefaultCadence, core.Cadences))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.IdentityHeader == "" {
		errors = append(errors, "identity header cannot be empty")
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}
	if c.ParseConcurrency < 1 || c.ParseConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid parse concurrency %d: must be between 1 and 32", c.ParseConcurrency))
	}
	if c.MaxUploadMB < 1 || c.MaxUploadMB > 100 {
		errors = append(errors, fmt.Sprintf("invalid max upload %d MB: must be between 1 and 100", c.MaxUploadMB))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.StoreTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at least 1 second", c.StoreTimeout))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Allowed reports whether email may use the API. An empty allow-list admits
// everyone the identity proxy lets through.
func (c *Config) Allowed(email string) bool {
	if len(c.AllowedEmails) == 0 {
		return true
	}
	email = core.NormalizeEmail(email)
	for _, a := range c.AllowedEmails {
		if a == email {
			return true
		}
	}
	return false
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory '%s': %v", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated list, trimming and lower-casing each
// entry.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := core.NormalizeEmail(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
