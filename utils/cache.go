// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"luxride/config"

	"github.com/go-redis/redis/v8"
)

// DedupClient is the Redis client backing inbound-event deduplication.
var DedupClient *redis.Client

// InitRedis initializes the Redis client used for webhook dedup keys.
func InitRedis() {
	DedupClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDedupDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DedupClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Dedup): %v", err)
	}
}

// GetDedupClient returns the dedup Redis client.
func GetDedupClient() *redis.Client {
	if DedupClient == nil {
		InitRedis()
	}
	return DedupClient
}
