// Package redis connects to the Redis instance that backs the shared rate
// limits.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hospitalhub/accessgate/internal/config"
)

type Client struct {
	*redis.Client
}

// NewClient parses redisURL, applies the pool settings from config and pings
// once. The client is closed again when the ping fails.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = config.RedisPoolSize
	opts.DialTimeout = config.RedisDialTimeout
	opts.ReadTimeout = config.RedisIOTimeout
	opts.WriteTimeout = config.RedisIOTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

// Healthy reports whether Redis answers a ping.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.Ping(ctx).Err() == nil
}
