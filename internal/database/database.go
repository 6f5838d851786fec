// Package database opens the store's connection: a pgx pool for
// PostgreSQL or a single pinned sqlx connection for SQLite.
//
// It also wires query tracing (pgx tracelog in local, New Relic when
// configured), runs migrations, and exposes a DBAdapter so repositories
// run the same goqu-built SQL against either backend.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/bookshelf/internal/config"
	loggerConfig "github.com/deppfellow/bookshelf/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
)

const (
	// DatabasePingTimeout is how long startup waits for the first ping.
	DatabasePingTimeout = 10 * time.Second

	// Goqu dialect names.
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Database holds whichever connection the configured driver opened.
// Exactly one of Pool and SQL is non-nil.
type Database struct {
	Pool   *pgxpool.Pool
	SQL    *sqlx.DB
	Driver string
	log    *zerolog.Logger
}

// New opens the database selected by cfg.Database.Driver.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	if cfg.Database.Driver == config.DriverSQLite {
		return OpenSQLite(cfg.Database.Path, logger)
	}

	return NewPostgres(cfg, logger, loggerService)
}

// NewPostgres creates an instrumented PostgreSQL pool and pings it.
func NewPostgres(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		pgxPoolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pgxPoolConfig.MinConns = int32(min(cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns))
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second
	}

	if loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL logging is too noisy outside local.
	if cfg.IsLocal() {
		globalLevel := logger.GetLevel()
		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(globalLevel)),
			LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	database := &Database{
		Pool:   pool,
		Driver: config.DriverPostgres,
		log:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout)
	defer cancel()
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("driver", database.Driver).Msg("connected to the database")

	return database, nil
}

// Dialect returns the goqu dialect matching the driver.
func (db *Database) Dialect() string {
	if db.Driver == config.DriverSQLite {
		return DialectSQLite
	}

	return DialectPostgres
}

// Adapter returns a DBAdapter over the open connection.
func (db *Database) Adapter() DBAdapter {
	if db.SQL != nil {
		return NewSQLXAdapter(db.SQL)
	}

	return NewPGXAdapter(db.Pool)
}

// Ping checks the connection is alive.
func (db *Database) Ping(ctx context.Context) error {
	if db.SQL != nil {
		return db.SQL.PingContext(ctx)
	}

	return db.Pool.Ping(ctx)
}

// Close releases the pool or connection.
func (db *Database) Close() error {
	db.log.Info().Str("driver", db.Driver).Msg("closing database connection")

	if db.SQL != nil {
		return db.SQL.Close()
	}

	db.Pool.Close()

	return nil
}
