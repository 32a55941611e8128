package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/cityworks/project-registry/config"
)

// DB is a *sql.DB that also owns the pgx pool behind it, if any.
type DB struct {
	*sql.DB
	pool *pgxpool.Pool
}

func (d *DB) Close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// NewConnection opens and pings the database with the configured driver.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	connectTO := cfg.ConnectTimeout
	if connectTO == 0 {
		connectTO = 5 * time.Second
	}
	pingTO := cfg.PingTimeout
	if pingTO == 0 {
		pingTO = 2 * time.Second
	}

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = openLibPQ(cfg)
	default:
		cctx, cancel := context.WithTimeout(ctx, connectTO)
		db, err = openPgx(cctx, cfg)
		cancel()
	}
	if err != nil {
		return nil, err
	}

	pctx, pcancel := context.WithTimeout(ctx, pingTO)
	defer pcancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func openPgx(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &DB{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

func openLibPQ(cfg *config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(cfg.MinConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: sqlDB}, nil
}
