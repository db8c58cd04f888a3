package redisstore

import (
	"context"
	"time"

	"project-pulse/config"

	"github.com/redis/go-redis/v9"
)

var (
	ErrKeyNotFound = redis.Nil
)

type Client struct {
	rdb *redis.Client
	key string
}

func New(cfg *config.RedisConfig) (*Client, error) {
	opt := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		// Timeouts
		DialTimeout:  orDefault(cfg.DialTimeout, 5*time.Second),
		ReadTimeout:  orDefault(cfg.ReadTimeout, 3*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 3*time.Second),

		// Pool tuning
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,

		// Connection lifecycle
		ConnMaxLifetime: 2 * time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
	}
	if opt.PoolSize <= 0 {
		opt.PoolSize = 10
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return NewWithClient(rdb, cfg.Key), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(rdb *redis.Client, key string) *Client {
	if key == "" {
		key = "monitor:alert_history"
	}
	return &Client{rdb: rdb, key: key}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
