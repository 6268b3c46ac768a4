package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codearena/internal/domain/model"
	"codearena/internal/platform/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisKeyPrefix = "verdict:"

type RedisVerdictCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// ConnectRedis dials Redis using the loaded configuration and returns a
// verdict cache backed by it. Fatal on connection failure, same as the
// database connect.
func ConnectRedis() *RedisVerdictCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	log.Info("Successfully connected to Redis")

	return NewRedisVerdictCache(rdb, config.AppConfig.VerdictCacheTTL)
}

func NewRedisVerdictCache(rdb *redis.Client, ttl time.Duration) *RedisVerdictCache {
	return &RedisVerdictCache{rdb: rdb, ttl: ttl}
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (*model.Verdict, bool, error) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("RedisVerdictCache.Get: %w", err)
	}

	var verdict model.Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		log.Warnf("Dropping corrupt verdict cache entry %s: %v", key, err)
		return nil, false, nil
	}
	return &verdict, true, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, key string, verdict *model.Verdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("RedisVerdictCache.Set marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("RedisVerdictCache.Set: %w", err)
	}
	return nil
}

func (c *RedisVerdictCache) Close() {
	if c.rdb != nil {
		c.rdb.Close()
		log.Info("Redis connection closed")
	}
}
