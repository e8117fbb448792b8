package config

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis returns nil when Redis is not configured or unreachable;
// idempotency keys and fan-out then fall back to single-instance mode.
func ConnectRedis(cfg RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Println("REDIS_ADDR not set, running without Redis")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Println("Cross-instance fan-out and shared idempotency keys will be disabled")
		client.Close()
		return nil
	}

	log.Println("Connected to Redis")
	return client
}
