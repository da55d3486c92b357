package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/argmine/internal/core/domain"
)

const failedURLTTL = 24 * time.Hour

// FailedURLRepo implements storage.FailedURLRepository using Redis.
// Each topic has a sorted set of ids scored by retry count; the url
// record itself is stored as JSON under its own key.
type FailedURLRepo struct {
	rdb *redis.Client
}

// NewFailedURLRepo creates a new Redis-backed failed url repository.
func NewFailedURLRepo(client *Client) *FailedURLRepo {
	return &FailedURLRepo{rdb: client.rdb}
}

// Add queues a failed url.
func (r *FailedURLRepo) Add(ctx context.Context, fu *domain.FailedURL) error {
	return r.save(ctx, fu)
}

func (r *FailedURLRepo) save(ctx context.Context, fu *domain.FailedURL) error {
	data, err := json.Marshal(fu)
	if err != nil {
		return fmt.Errorf("failed to marshal failed url: %w", err)
	}

	if err := r.rdb.Set(ctx, failedURLKey(fu.Topic, fu.ID), data, failedURLTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed url: %w", err)
	}

	// lower retry count = retried first
	if err := r.rdb.ZAdd(ctx, failedQueueKey(fu.Topic), redis.Z{
		Score:  float64(fu.RetryCount),
		Member: fu.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}
	return nil
}

func (r *FailedURLRepo) get(ctx context.Context, topic, id string) (*domain.FailedURL, error) {
	data, err := r.rdb.Get(ctx, failedURLKey(topic, id)).Bytes()
	if err == redis.Nil {
		// record expired but id still queued
		r.rdb.ZRem(ctx, failedQueueKey(topic), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed url: %w", err)
	}

	var fu domain.FailedURL
	if err := json.Unmarshal(data, &fu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed url: %w", err)
	}
	return &fu, nil
}

// GetAll returns queued urls for topic, fewest retries first.
func (r *FailedURLRepo) GetAll(ctx context.Context, topic string) ([]*domain.FailedURL, error) {
	ids, err := r.rdb.ZRange(ctx, failedQueueKey(topic), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	urls := make([]*domain.FailedURL, 0, len(ids))
	for _, id := range ids {
		fu, err := r.get(ctx, topic, id)
		if err != nil {
			return nil, err
		}
		if fu != nil {
			urls = append(urls, fu)
		}
	}
	return urls, nil
}

// IncrementRetry bumps the retry count and last attempt of a queued url.
func (r *FailedURLRepo) IncrementRetry(ctx context.Context, topic, id string) error {
	fu, err := r.get(ctx, topic, id)
	if err != nil || fu == nil {
		return err
	}
	fu.RetryCount++
	fu.LastAttempt = time.Now().Unix()
	return r.save(ctx, fu)
}

// MarkResolved removes a url that has since been classified.
func (r *FailedURLRepo) MarkResolved(ctx context.Context, topic, id string) error {
	if err := r.rdb.ZRem(ctx, failedQueueKey(topic), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, failedURLKey(topic, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed url: %w", err)
	}
	return nil
}

// Count returns the number of queued urls for topic.
func (r *FailedURLRepo) Count(ctx context.Context, topic string) (int, error) {
	count, err := r.rdb.ZCard(ctx, failedQueueKey(topic)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
