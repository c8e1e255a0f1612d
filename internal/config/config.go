// Package config loads ShelfNotes server configuration from command-line
// flags, environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Catalog   CatalogConfig
	Store     StoreConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig points at the directory holding the database, signing key and search index.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        // default: 5001
	ReadTimeout    time.Duration // default: 15s
	WriteTimeout   time.Duration // default: 15s
	IdleTimeout    time.Duration // default: 60s
	AllowedOrigins []string      // CORS origins; default: *
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// AuthConfig holds identity provider and session configuration.
type AuthConfig struct {
	GoogleClientID string
	GoogleCertsURL string
	GoogleIssuers  []string
	// SessionKey is a hex encoded Ed25519 private key. When empty the key is
	// loaded from, or generated into, the data directory.
	SessionKey  string
	AdminEmails []string
}

// CatalogConfig configures the Google Books client.
type CatalogConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxResults    int
	CoverBlurHash bool
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver         string // sqlite or badger
	Path           string
	ConnectRetries int
	RetryDelay     time.Duration
}

// SearchConfig configures the local index of registered books.
type SearchConfig struct {
	Enabled bool
	Path    string
}

// RateLimitRule allows Requests per Window for each client address.
type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

// String renders the rule in the same form it is parsed from, e.g. "5/15m0s".
func (r RateLimitRule) String() string {
	return fmt.Sprintf("%d/%s", r.Requests, r.Window)
}

// RateLimitConfig holds the per-route limits.
type RateLimitConfig struct {
	Auth   RateLimitRule
	Search RateLimitRule
	Review RateLimitRule
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string // host:port of the OTLP/HTTP collector
	Insecure    bool
	ServiceName string
}

// LoadConfig loads configuration using the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("shelfnotes", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for database, keys and search index")
	port := fs.String("port", "", "Server port (default: 5001)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	storeDriver := fs.String("store", "", "Store driver: sqlite or badger (default: sqlite)")
	storePath := fs.String("store-path", "", "Store location (default: inside data path)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env file is not an error; existing variables are never overwritten.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*port, "PORT", "5001"),
			AllowedOrigins: getListConfigValue("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TrustProxy:     getBoolConfigValue("", "TRUST_PROXY", false),
		},
		Auth: AuthConfig{
			GoogleClientID: getConfigValue("", "GOOGLE_CLIENT_ID", ""),
			GoogleCertsURL: getConfigValue("", "GOOGLE_CERTS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			GoogleIssuers:  []string{"accounts.google.com", "https://accounts.google.com"},
			SessionKey:     getConfigValue("", "SESSION_KEY", ""),
			AdminEmails:    getListConfigValue("ADMIN_EMAILS", nil),
		},
		Catalog: CatalogConfig{
			BaseURL:       getConfigValue("", "GOOGLE_BOOKS_BASE_URL", "https://www.googleapis.com/books/v1"),
			APIKey:        getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
			MaxResults:    getIntConfigValue("", "GOOGLE_BOOKS_MAX_RESULTS", 10),
			CoverBlurHash: getBoolConfigValue("", "COVER_BLURHASH", true),
		},
		Store: StoreConfig{
			Driver:         getConfigValue(*storeDriver, "STORE_DRIVER", "sqlite"),
			Path:           getConfigValue(*storePath, "STORE_PATH", ""),
			ConnectRetries: getIntConfigValue("", "STORE_CONNECT_RETRIES", 5),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue("", "SEARCH_ENABLED", true),
			Path:    getConfigValue("", "SEARCH_PATH", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getBoolConfigValue("", "OTEL_ENABLED", false),
			Endpoint:    getConfigValue("", "OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    getBoolConfigValue("", "OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getConfigValue("", "OTEL_SERVICE_NAME", "shelfnotes-server"),
		},
	}

	durations := []struct {
		target   *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Catalog.Timeout, "", "GOOGLE_BOOKS_TIMEOUT", "10s"},
		{&cfg.Store.RetryDelay, "", "STORE_RETRY_DELAY", "5s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.target = parsed
	}

	rules := []struct {
		target   *RateLimitRule
		envKey   string
		fallback string
	}{
		{&cfg.RateLimit.Auth, "RATE_LIMIT_AUTH", "5/15m"},
		{&cfg.RateLimit.Search, "RATE_LIMIT_SEARCH", "10/1m"},
		{&cfg.RateLimit.Review, "RATE_LIMIT_REVIEW", "20/1h"},
	}
	for _, r := range rules {
		raw := getConfigValue("", r.envKey, r.fallback)
		rule, err := ParseRateLimitRule(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", r.envKey, raw, err)
		}
		*r.target = rule
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Driver {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("invalid store driver: %q (must be sqlite or badger)", c.Store.Driver)
	}

	if c.Auth.GoogleClientID == "" {
		return errors.New("GOOGLE_CLIENT_ID is required")
	}

	if c.Catalog.MaxResults < 1 || c.Catalog.MaxResults > 40 {
		return fmt.Errorf("invalid catalog max results: %d (must be between 1 and 40)", c.Catalog.MaxResults)
	}

	if c.Store.ConnectRetries < 0 {
		return errors.New("store connect retries cannot be negative")
	}

	return nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS (case-insensitive).
func (c *AuthConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if strings.ToLower(admin) == email {
			return true
		}
	}
	return false
}

// ParseRateLimitRule parses "<requests>/<window>", e.g. "10/1m".
func ParseRateLimitRule(s string) (RateLimitRule, error) {
	count, window, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return RateLimitRule{}, errors.New("expected <requests>/<window>")
	}

	n, err := strconv.Atoi(count)
	if err != nil || n < 1 {
		return RateLimitRule{}, fmt.Errorf("requests must be a positive integer, got %q", count)
	}

	d, err := time.ParseDuration(window)
	if err != nil {
		return RateLimitRule{}, fmt.Errorf("window: %w", err)
	}
	if d <= 0 {
		return RateLimitRule{}, errors.New("window must be positive")
	}

	return RateLimitRule{Requests: n, Window: d}, nil
}

// expandPaths resolves the data directory and derives the store and search
// locations from it when they are not set explicitly.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.Data.BasePath, err = expandPath(c.Data.BasePath, filepath.Join(homeDir, "ShelfNotes"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}

	defaultStore := filepath.Join(c.Data.BasePath, "shelfnotes.db")
	if c.Store.Driver == "badger" {
		defaultStore = filepath.Join(c.Data.BasePath, "badger")
	}
	c.Store.Path, err = expandPath(c.Store.Path, defaultStore)
	if err != nil {
		return fmt.Errorf("invalid store path: %w", err)
	}

	c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(c.Data.BasePath, "search"))
	if err != nil {
		return fmt.Errorf("invalid search path: %w", err)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1" and "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getListConfigValue splits a comma separated env var, dropping empty items.
func getListConfigValue(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
