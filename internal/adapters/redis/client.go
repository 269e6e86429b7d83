package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// Client wraps a RedLock manager for the maintenance lock plus a
// standard Redis client for health checks
type Client struct {
	lockManager *redlock.RedLock
	rdb         *redis.Client
	redisAddrs  []string
}

// New creates new Redis client with RedLock support
func New(cfg *config.RedisConfig) (*Client, error) {
	addr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	// Single instance for now; a Redis cluster would pass multiple
	// addresses here for fault tolerance
	redisAddrs := []string{addr}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lockManager, err := redlock.NewRedLock(ctx, redisAddrs)
	if err != nil {
		return nil, fmt.Errorf("failed to create redlock manager: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis client initialized",
		zap.Strings("addresses", redisAddrs),
		zap.Int("db", cfg.DB),
	)

	return &Client{
		lockManager: lockManager,
		rdb:         rdb,
		redisAddrs:  redisAddrs,
	}, nil
}

// NewMaintenanceLock creates a maintenance lock backed by this client
func (c *Client) NewMaintenanceLock(holder string) *MaintenanceLock {
	return newMaintenanceLock(c.lockManager, holder)
}

// Close closes redis connections
func (c *Client) Close() error {
	if c.rdb != nil {
		logger.Info("closing redis client")
		if err := c.rdb.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	return nil
}

// Health checks redis health by acquiring and releasing a probe lock
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	probe := "health:check"
	expiry, err := c.lockManager.Lock(ctx, probe, 1*time.Second)
	if err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	if expiry <= 0 {
		return fmt.Errorf("redis health check failed: invalid expiry")
	}

	_ = c.lockManager.UnLock(ctx, probe)

	return nil
}
