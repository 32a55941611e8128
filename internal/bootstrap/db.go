package bootstrap

import (
	"context"
	"log"

	"github.com/cityworks/project-registry/config"
	"github.com/cityworks/project-registry/internal/storage/postgres"
)

// OpenDB connects with the configured driver and applies the schema.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*postgres.DB, error) {
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(ctx, db.DB); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("database ready driver=%s max_conns=%d", cfg.Driver, cfg.MaxConns)
	return db, nil
}
