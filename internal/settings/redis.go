package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/logger"
)

// RedisStore keeps each namespace in a Redis hash
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Log.Info("Successfully connected to Redis settings store")

	return &RedisStore{
		client: client,
		prefix: cfg.SettingsPrefix,
	}, nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(namespace string) string {
	return r.prefix + namespace
}

// Load returns every field of the namespace hash
func (r *RedisStore) Load(ctx context.Context, namespace string) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, r.key(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings %s: %w", namespace, err)
	}
	return values, nil
}

// Put sets a single field
func (r *RedisStore) Put(ctx context.Context, namespace, key, value string) error {
	if err := r.client.HSet(ctx, r.key(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("failed to store setting %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a single field
func (r *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := r.client.HDel(ctx, r.key(namespace), key).Err(); err != nil {
		return fmt.Errorf("failed to delete setting %s/%s: %w", namespace, key, err)
	}
	return nil
}
