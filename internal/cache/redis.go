// Package cache holds the Redis connection used by the durable store
// adapter for cross-process change broadcasting.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"whiteboard-backend/internal/config"
)

// Connect connects and pings Redis.
func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", cfg.Addr)
	return client, nil
}
