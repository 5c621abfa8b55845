package server

import (
	"context"
	"fmt"

	"github.com/jonwraymond/castgate/casting"
	"github.com/jonwraymond/castgate/observe"
)

// OpenStore opens the PostgreSQL store at cfg.DatabaseURL, creating the
// tables when DatabaseMigrate is set. Without a URL it returns an empty
// in-memory store.
func OpenStore(ctx context.Context, cfg *Config, logger observe.Logger) (casting.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn(ctx, "DATABASE_URL not set, using in-memory store")
		return casting.NewMemoryStore(), nil
	}

	store, err := casting.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: open store: %w", err)
	}
	if cfg.DatabaseMigrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("server: open store: %w", err)
		}
	}
	logger.Info(ctx, "connected to postgres")
	return store, nil
}
