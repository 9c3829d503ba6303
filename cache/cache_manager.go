package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 5 * time.Minute

// Manager caches JSON values under a namespace. Invalidate bumps the
// namespace version, which orphans every entry written under the old one;
// orphans expire with their TTL.
type Manager struct {
	redis      *redis.Client
	ttl        time.Duration
	versionKey string
	prefix     string
}

func NewManager(client *redis.Client, namespace string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis:      client,
		ttl:        ttl,
		versionKey: namespace + ":version",
		prefix:     namespace + ":v:",
	}
}

// Get decodes the cached value for key into dest and reports whether it was
// found.
func (cm *Manager) Get(ctx context.Context, key string, dest interface{}) bool {
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return false
	}

	cached, err := cm.redis.Get(ctx, cm.entryKey(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		zap.L().Warn("Failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key for the current version.
func (cm *Manager) Set(ctx context.Context, key string, value interface{}) error {
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return cm.redis.Set(ctx, cm.entryKey(version, key), data, cm.ttl).Err()
}

// SetAsync stores value in the background so the caller's response is not
// delayed by Redis.
func (cm *Manager) SetAsync(key string, value interface{}) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := cm.Set(bgCtx, key, value); err != nil {
			zap.L().Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Invalidate drops every entry in the namespace by bumping the version.
func (cm *Manager) Invalidate(ctx context.Context) error {
	newVersion, err := cm.redis.Incr(ctx, cm.versionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zap.L().Debug("Cache invalidated", zap.String("key", cm.versionKey), zap.Int64("new_version", newVersion))
	return nil
}

// getCacheVersion retrieves the current cache version with retry logic
func (cm *Manager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, cm.versionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if errors.Is(err, redis.Nil) {
			// SetNX so concurrent initialisers agree on version 1.
			if err := cm.redis.SetNX(ctx, cm.versionKey, 1, 0).Err(); err == nil {
				continue
			}
		}

		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *Manager) entryKey(version int64, key string) string {
	return fmt.Sprintf("%s%d:%s", cm.prefix, version, key)
}
