// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"usadba/config"

	"github.com/go-redis/redis/v8"
)

// NewStateClient returns the Redis client used for session state and
// conversation history.
func NewStateClient(cfg config.Config) *redis.Client {
	return newClient(cfg, cfg.RedisStateDB)
}

// NewCacheClient returns the Redis client used for the shared answer cache.
func NewCacheClient(cfg config.Config) *redis.Client {
	return newClient(cfg, cfg.RedisCacheDB)
}

func newClient(cfg config.Config, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}
