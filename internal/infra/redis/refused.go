package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RefusedRegistry implements storage.RefusedRegistry with one Redis set per topic.
type RefusedRegistry struct {
	rdb *redis.Client
}

// NewRefusedRegistry creates a new Redis-backed refused registry.
func NewRefusedRegistry(client *Client) *RefusedRegistry {
	return &RefusedRegistry{rdb: client.rdb}
}

// IsRefused reports whether url was refused before for topic.
func (r *RefusedRegistry) IsRefused(ctx context.Context, topic, url string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, refusedKey(topic), url).Result()
	if err != nil {
		return false, fmt.Errorf("sismember failed: %w", err)
	}
	return ok, nil
}

// MarkRefused records url as refused for topic.
func (r *RefusedRegistry) MarkRefused(ctx context.Context, topic, url string) error {
	if err := r.rdb.SAdd(ctx, refusedKey(topic), url).Err(); err != nil {
		return fmt.Errorf("sadd failed: %w", err)
	}
	return nil
}

// List returns every refused url for topic, sorted.
func (r *RefusedRegistry) List(ctx context.Context, topic string) ([]string, error) {
	urls, err := r.rdb.SMembers(ctx, refusedKey(topic)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	sort.Strings(urls)
	return urls, nil
}

// Clear forgets every refused url for topic.
func (r *RefusedRegistry) Clear(ctx context.Context, topic string) error {
	return r.rdb.Del(ctx, refusedKey(topic)).Err()
}
