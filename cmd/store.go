package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tkd-registrar/internal/registration"
	"github.com/sells-group/tkd-registrar/internal/resilience"
	"github.com/sells-group/tkd-registrar/internal/roster"
	"github.com/sells-group/tkd-registrar/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "tkd.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates the store config, connects and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func retryConfig() resilience.RetryConfig {
	return resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff)
}

func newService(st store.Store) *registration.Service {
	return registration.NewService(st,
		registration.WithClassifierOptions(cfg.Classify),
		registration.WithRetry(retryConfig()),
	)
}

func newImporter(st store.Store) *roster.Importer {
	return roster.NewImporter(st, roster.Options{
		Concurrency: cfg.Import.Concurrency,
		BatchSize:   cfg.Import.BatchSize,
		Classify:    cfg.Classify,
		Retry:       retryConfig(),
	})
}
