package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Store:   StoreConfig{Driver: "sqlite", ConnectRetries: 5},
		Auth:    AuthConfig{GoogleClientID: "client.apps.googleusercontent.com"},
		Catalog: CatalogConfig{MaxResults: 10},
	}
}

// isolate points every lookup at a temp dir and a non-existent .env file.
func isolate(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GOOGLE_CLIENT_ID", "client.apps.googleusercontent.com")
	return []string{"-env-file", filepath.Join(dir, "missing.env"), "-data-path", filepath.Join(dir, "data")}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"uppercase environment", func(c *Config) { c.App.Environment = "DEVELOPMENT" }},
		{"unknown log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"missing client id", func(c *Config) { c.Auth.GoogleClientID = "" }},
		{"too many catalog results", func(c *Config) { c.Catalog.MaxResults = 41 }},
		{"negative retries", func(c *Config) { c.Store.ConnectRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	args := isolate(t)

	cfg, err := Load(args)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Store.ConnectRetries)
	assert.Equal(t, 5*time.Second, cfg.Store.RetryDelay)
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "shelfnotes.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "search"), cfg.Search.Path)
	assert.Equal(t, 10, cfg.Catalog.MaxResults)
	assert.Equal(t, RateLimitRule{Requests: 5, Window: 15 * time.Minute}, cfg.RateLimit.Auth)
	assert.Equal(t, RateLimitRule{Requests: 10, Window: time.Minute}, cfg.RateLimit.Search)
	assert.Equal(t, RateLimitRule{Requests: 20, Window: time.Hour}, cfg.RateLimit.Review)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_TrustProxy(t *testing.T) {
	args := isolate(t)
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load(args)
	require.NoError(t, err)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	args := isolate(t)
	t.Setenv("PORT", "7000")

	cfg, err := Load(append(args, "-port", "9000"))
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)

	cfg, err = Load(args)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoad_BadgerDefaultsToDirectory(t *testing.T) {
	args := isolate(t)

	cfg, err := Load(append(args, "-store", "badger"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Data.BasePath, "badger"), cfg.Store.Path)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	envFile := filepath.Join(dir, ".env")
	content := "GOOGLE_CLIENT_ID=from-file\nADMIN_EMAILS=Root@Example.com, ops@example.com\nRATE_LIMIT_SEARCH=3/30s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("GOOGLE_CLIENT_ID")
		os.Unsetenv("ADMIN_EMAILS")
		os.Unsetenv("RATE_LIMIT_SEARCH")
	})
	os.Unsetenv("GOOGLE_CLIENT_ID")

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.GoogleClientID)
	assert.Equal(t, []string{"Root@Example.com", "ops@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, RateLimitRule{Requests: 3, Window: 30 * time.Second}, cfg.RateLimit.Search)
}

func TestLoad_InvalidDuration(t *testing.T) {
	args := isolate(t)
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load(args)
	assert.ErrorContains(t, err, "SERVER_READ_TIMEOUT")
}

func TestLoad_MissingClientID(t *testing.T) {
	args := isolate(t)
	t.Setenv("GOOGLE_CLIENT_ID", "")

	_, err := Load(args)
	assert.ErrorContains(t, err, "GOOGLE_CLIENT_ID")
}

func TestParseRateLimitRule(t *testing.T) {
	tests := []struct {
		in      string
		want    RateLimitRule
		wantErr bool
	}{
		{in: "5/15m", want: RateLimitRule{Requests: 5, Window: 15 * time.Minute}},
		{in: " 20/1h ", want: RateLimitRule{Requests: 20, Window: time.Hour}},
		{in: "5", wantErr: true},
		{in: "0/1m", wantErr: true},
		{in: "x/1m", wantErr: true},
		{in: "5/forever", wantErr: true},
		{in: "5/-1m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRateLimitRule(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAdminEmail(t *testing.T) {
	auth := AuthConfig{AdminEmails: []string{"Root@Example.com"}}

	assert.True(t, auth.IsAdminEmail("root@example.com"))
	assert.True(t, auth.IsAdminEmail(" ROOT@example.com "))
	assert.False(t, auth.IsAdminEmail("reader@example.com"))
	assert.False(t, auth.IsAdminEmail(""))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("/abs/./path", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = expandPath("rel", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
