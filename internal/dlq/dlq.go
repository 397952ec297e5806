package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/models"
)

// DLQ is a bounded Redis list of analytics messages the forwarder rejected.
// Entries are appended at the tail and replayed from the head.
type DLQ struct {
	client *redis.Client
	key    string
	maxLen int64
}

// New connects to Redis and returns the queue configured by cfg
func New(cfg *config.RedisConfig) (*DLQ, error) {
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

	logger.Log.WithFields(logrus.Fields{
		"key":    cfg.DLQKey,
		"maxLen": cfg.DLQMaxLen,
	}).Info("Dead letter queue ready")

	return &DLQ{
		client: client,
		key:    cfg.DLQKey,
		maxLen: cfg.DLQMaxLen,
	}, nil
}

// Close closes the Redis connection
func (d *DLQ) Close() error {
	return d.client.Close()
}

// Push appends entry, stamping it when Timestamp is zero. When the queue is
// bounded the oldest entries are dropped to stay within maxLen.
func (d *DLQ) Push(ctx context.Context, entry models.DLQEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ entry: %w", err)
	}

	_, err = d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, d.key, data)
		if d.maxLen > 0 {
			pipe.LTrim(ctx, d.key, -d.maxLen, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push to DLQ: %w", err)
	}

	metrics.DLQCount.Inc()

	logger.WithMessageID(entry.MessageID).WithFields(logrus.Fields{
		"error":      entry.Error,
		"retryCount": entry.RetryCount,
	}).Warn("Message pushed to DLQ")

	return nil
}

// Pop removes and returns the oldest entry. It returns nil when the queue is empty.
func (d *DLQ) Pop(ctx context.Context) (*models.DLQEntry, error) {
	result, err := d.client.LPop(ctx, d.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop DLQ entry: %w", err)
	}

	var entry models.DLQEntry
	if err := json.Unmarshal([]byte(result), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DLQ entry: %w", err)
	}
	return &entry, nil
}

// GetCount returns the number of entries in the DLQ
func (d *DLQ) GetCount(ctx context.Context) (int64, error) {
	return d.client.LLen(ctx, d.key).Result()
}

// GetEntries returns entries in the inclusive range [start, stop]; negative indexes count from the tail
func (d *DLQ) GetEntries(ctx context.Context, start, stop int64) ([]models.DLQEntry, error) {
	results, err := d.client.LRange(ctx, d.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ entries: %w", err)
	}

	entries := make([]models.DLQEntry, 0, len(results))
	for _, result := range results {
		var entry models.DLQEntry
		if err := json.Unmarshal([]byte(result), &entry); err != nil {
			logger.Log.Errorf("Skipping unreadable DLQ entry: %v", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Publisher republishes a dead-lettered message onto the analytics topic. The
// forwarder copies retryCount into the entry it creates if the message fails again.
type Publisher interface {
	Republish(messageID string, data []byte, retryCount int) error
}

// Replay pops up to limit entries and republishes them with RetryCount+1.
// Entries that already reached maxRetries are pushed back untouched; entries
// that fail to publish are pushed back with the attempt counted. It returns how
// many entries were republished.
func (d *DLQ) Replay(ctx context.Context, pub Publisher, limit, maxRetries int) (int, error) {
	replayed := 0
	var parked []models.DLQEntry

	for i := 0; i < limit; i++ {
		entry, err := d.Pop(ctx)
		if err != nil {
			return replayed, err
		}
		if entry == nil {
			break
		}

		if entry.RetryCount >= maxRetries {
			parked = append(parked, *entry)
			continue
		}

		attempt := entry.RetryCount + 1
		if err := pub.Republish(entry.MessageID, []byte(entry.OriginalData), attempt); err != nil {
			entry.RetryCount = attempt
			entry.Error = err.Error()
			parked = append(parked, *entry)
			continue
		}
		replayed++
	}

	for _, entry := range parked {
		if err := d.Push(ctx, entry); err != nil {
			return replayed, err
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"replayed": replayed,
		"parked":   len(parked),
	}).Info("DLQ replay finished")

	return replayed, nil
}
