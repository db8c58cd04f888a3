package db

import (
	"context"
	"fmt"
	"project-pulse/config"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ConnectToDB opens the shared pool used by every DB probe. It is opened once
// at process start and closed by the MonitoringContext on shutdown. appName
// tags the sessions so DBAs can tell monitor queries apart in pg_stat_activity.
func ConnectToDB(ctx context.Context, DBCfg *config.DBConfig, appName string, log *zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DBCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	// Pool sizing
	poolCfg.MaxConns = DBCfg.MaxOpenConns
	poolCfg.MinConns = DBCfg.MinIdleConns
	poolCfg.MaxConnLifetime = DBCfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = DBCfg.ConnMaxIdleTime
	poolCfg.HealthCheckPeriod = time.Minute

	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	poolCfg.BeforeConnect = func(ctx context.Context, cfg *pgx.ConnConfig) error {
		log.Debug().Str("host", cfg.Host).Msg("opening new db connection")
		return nil
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		log.Debug().Msg("db connection established")
		return nil
	}

	// Create pool (does NOT guarantee connectivity)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	// Verify connectivity (FAIL FAST)
	healthCtx, cancel := context.WithTimeout(ctx, DBCfg.HealthTimeout)
	defer cancel()

	if err := pool.Ping(healthCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	log.Info().
		Int32("max_conns", poolCfg.MaxConns).
		Str("application_name", appName).
		Msg("database connection pool initialized")
	return pool, nil
}
