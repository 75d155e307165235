package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tkd-registrar/internal/config"
	"github.com/sells-group/tkd-registrar/internal/store"
)

func TestInitStore_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: dsn,
		},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck
}

func TestInitStore_SQLiteDefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir) //nolint:errcheck

	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite"},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	_, statErr := os.Stat(filepath.Join(tmpDir, "tkd.db"))
	assert.NoError(t, statErr)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "mysql"},
	}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_PostgresBadURL(t *testing.T) {
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "postgres", DatabaseURL: "://not a url"},
	}

	_, err := initStore(context.Background())
	assert.Error(t, err)
}

func TestOpenStore_MigratesAndValidates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "open.db")
	cfg = &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn},
		Import: config.ImportConfig{Concurrency: 1},
		Retry:  config.RetryConfig{MaxAttempts: 1},
	}

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = st.ListTeams(context.Background())
	assert.NoError(t, err)

	cfg.Store.Driver = "oracle"
	_, err = openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestNewImporterAndService_UseConfig(t *testing.T) {
	cfg = &config.Config{
		Import: config.ImportConfig{Concurrency: 2, BatchSize: 10},
		Retry:  config.RetryConfig{MaxAttempts: 5, InitialBackoff: 50, MaxBackoff: 500},
	}
	rc := retryConfig()
	assert.Equal(t, 5, rc.MaxAttempts)

	var st store.Store
	assert.NotNil(t, newService(st))
	assert.NotNil(t, newImporter(st))
}
