package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/config"
)

// ErrMissingDSN is returned when no POSTGRES_DSN is configured.
var ErrMissingDSN = errors.New("POSTGRES_DSN is required")

// Postgres owns the pgx pool backing every repository.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres opens the pool and verifies it with a ping. Every session runs
// in the billing time zone, so date casts of TIMESTAMPTZ columns land on the
// same calendar day as the reference months computed in Go.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, timezone string, logger *zap.Logger) (*Postgres, error) {
	poolCfg, err := poolConfig(cfg, timezone)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres",
		zap.String("timezone", timezone),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

func poolConfig(cfg config.PostgresConfig, timezone string) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, ErrMissingDSN
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse POSTGRES_DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	if timezone != "" {
		poolCfg.AfterConnect = sessionTimeZone(timezone)
	}
	return poolCfg, nil
}

func sessionTimeZone(timezone string) func(context.Context, *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "SELECT set_config('TimeZone', $1, false)", timezone); err != nil {
			return fmt.Errorf("set session time zone %q: %w", timezone, err)
		}
		return nil
	}
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping verifies database connectivity for the readiness check.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return ErrMissingDSN
	}
	return p.Pool.Ping(ctx)
}
