package db

import (
	"context"
	"fmt"
	"strings"

	"tickerpulse/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	newPool = pgxpool.New
	pingDB  = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// Connect opens a pool for databaseURL and verifies it with a ping. An
// empty URL is an error; callers decide whether Postgres is optional.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	pool, err := newPool(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pingDB(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// Close is a nil-safe pool close.
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
		logger.Debug("postgres pool closed", zap.String("component", "db"))
	}
}
