package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/resolvehq/resolve/internal/config"
	"github.com/resolvehq/resolve/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	// Redis is nil when no REDIS_URL is configured; the token store
	// then runs purely in memory.
	Redis *redis.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, cfg.DBUrl)
		cancel()
		if err == nil {
			utils.Logger.Infof("Successfully connected to database on attempt %d", i)
			break
		}

		utils.Logger.WithError(err).Warnf(
			"Failed to connect to database on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	a := &App{Config: cfg, DB: dbPool}

	if cfg.RedisURL != "" {
		opts, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			dbPool.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", parseErr)
		}
		a.Redis = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		pingErr := a.Redis.Ping(ctx).Err()
		cancel()
		if pingErr != nil {
			// Not fatal: the failover store covers outages per-operation,
			// including one present at startup.
			utils.Logger.WithError(pingErr).Warn("Redis unreachable at startup; token store will degrade to in-memory until it recovers")
		} else {
			utils.Logger.Info("Connected to Redis")
		}
	}

	return a, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("Database connection closed.")
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			utils.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
}

// newDBPool constructs the pgx pool with production-safe settings:
// idle sockets are retired before the platform proxy kills them and a
// background health check keeps every connection warm.
func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.ConnectConfig(ctx, cfg)
}
