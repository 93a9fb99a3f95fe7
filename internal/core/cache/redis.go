package cache

import (
	"context"
	"errors"
	"fmt"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore 以 Redis 儲存的快取，多個服務實例可共用
type RedisStore struct {
	client *redis.Client
	config *config.CacheConfig
	prefix string
}

// NewRedisStore 建立 Redis 快取並測試連線
func NewRedisStore(cfg *config.CacheConfig, rcfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", rcfg.Addr), zap.Int("db", rcfg.DB))
	return NewRedisStoreWithClient(client, cfg, rcfg.Prefix), nil
}

// NewRedisStoreWithClient 使用既有的 client
func NewRedisStoreWithClient(client *redis.Client, cfg *config.CacheConfig, prefix string) *RedisStore {
	return &RedisStore{client: client, config: cfg, prefix: prefix}
}

// generateKey 生成緩存鍵
func (s *RedisStore) generateKey(namespace, key string) string {
	if s.prefix == "" {
		return entryKey(namespace, key)
	}
	return s.prefix + ":" + entryKey(namespace, key)
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.generateKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss(namespace)
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	common.LogCacheHit(namespace)
	return data, nil
}

// Set 設置緩存
func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := s.client.Set(ctx, s.generateKey(namespace, key), value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
