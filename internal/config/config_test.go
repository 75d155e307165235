package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "tkd.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20, cfg.Server.RateLimit.RPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimit.Burst)
	assert.False(t, cfg.Server.TrustProxy)
	assert.False(t, cfg.Classify.AdultPoomsaeGroup)
	assert.Equal(t, 4, cfg.Import.Concurrency)
	assert.Equal(t, 200, cfg.Import.BatchSize)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2000, cfg.Retry.MaxBackoff)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/tkd
  max_conns: 8
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins: ["https://club.example.com"]
  trust_proxy: true
classify:
  adult_poomsae_group: true
import:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tkd", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(8), cfg.Store.MaxConns)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://club.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.TrustProxy)
	assert.True(t, cfg.Classify.AdultPoomsaeGroup)
	assert.Equal(t, 8, cfg.Import.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 40, cfg.Server.RateLimit.Burst)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TKD_STORE_DRIVER", "postgres")
	t.Setenv("TKD_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("TKD_SERVER_PORT", "3000")
	t.Setenv("TKD_CLASSIFY_ADULT_POOMSAE_GROUP", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Classify.AdultPoomsaeGroup)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "tkd.db"
	cfg.Server.Port = 8080
	cfg.Server.RateLimit.RPS = 20
	cfg.Server.RateLimit.Burst = 40
	cfg.Import.Concurrency = 4
	cfg.Retry.MaxAttempts = 3
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "serve defaults", mode: "serve"},
		{name: "store defaults", mode: "store"},
		{name: "offline ignores store", mode: "offline", mutate: func(c *Config) { c.Store.DatabaseURL = "" }},
		{name: "unknown mode", mode: "bogus", wantErr: "unknown mode"},
		{name: "port zero", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port must be between 1 and 65535"},
		{name: "port too high", mode: "serve", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "burst missing", mode: "serve", mutate: func(c *Config) { c.Server.RateLimit.Burst = 0 }, wantErr: "burst must be >= 1"},
		{name: "rate limit disabled", mode: "serve", mutate: func(c *Config) { c.Server.RateLimit = RateLimitConfig{} }},
		{name: "bad driver", mode: "store", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: `store.driver "mysql"`},
		{name: "missing dsn", mode: "store", mutate: func(c *Config) { c.Store.DatabaseURL = "" }, wantErr: "store.database_url is required"},
		{name: "pool bounds", mode: "store", mutate: func(c *Config) { c.Store.MinConns, c.Store.MaxConns = 5, 2 }, wantErr: "min_conns"},
		{name: "concurrency zero", mode: "offline", mutate: func(c *Config) { c.Import.Concurrency = 0 }, wantErr: "import.concurrency must be between 1 and 64"},
		{name: "concurrency high", mode: "offline", mutate: func(c *Config) { c.Import.Concurrency = 65 }, wantErr: "import.concurrency"},
		{name: "retry attempts", mode: "offline", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: "retry.max_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "store.database_url is required")
}
