package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// LoadHistory returns the encoded alert history, or nil when none is stored yet.
func (c *Client) LoadHistory(ctx context.Context) ([]byte, error) {
	var data []byte

	err := retry(ctx, 3, func() error {
		b, err := c.rdb.Get(ctx, c.key).Bytes()
		if errors.Is(err, redis.Nil) {
			data = nil
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	return data, err
}

// SaveHistory replaces the stored alert history. No TTL: retention is bounded
// by the entry cap, not by expiry.
func (c *Client) SaveHistory(ctx context.Context, data []byte) error {
	return retry(ctx, 3, func() error {
		return c.rdb.Set(ctx, c.key, data, 0).Err()
	})
}
