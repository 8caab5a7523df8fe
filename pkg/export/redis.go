package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces all keys written by RedisSink.
const DefaultRedisPrefix = "omnivore"

// RedisSink stores each item as JSON under <prefix>:item:<key> and records
// the key in the <prefix>:items set. Re-exporting an item overwrites it.
type RedisSink struct {
	redis  *redis.Client
	prefix string
}

// NewRedisSink creates a sink writing through redisClient. The caller owns the client.
func NewRedisSink(redisClient *redis.Client, prefix string) *RedisSink {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisSink{
		redis:  redisClient,
		prefix: prefix,
	}
}

// ItemKey returns the key an item is stored under.
func (s *RedisSink) ItemKey(item client.Item) string {
	return s.itemKey(item.Key())
}

func (s *RedisSink) itemKey(key string) string {
	return s.prefix + ":item:" + key
}

// IndexKey returns the key of the set holding all item keys.
func (s *RedisSink) IndexKey() string {
	return s.prefix + ":items"
}

// Name implements Sink.
func (s *RedisSink) Name() string {
	return "redis"
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, item client.Item) (int, error) {
	if item.Key() == "" {
		return 0, ErrMissingSlug
	}

	data, err := json.Marshal(item)
	if err != nil {
		return 0, fmt.Errorf("marshal item: %w", err)
	}

	key := s.ItemKey(item)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, s.IndexKey(), key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis write: %w", err)
	}

	return len(data), nil
}

// Get reads an item back by key.
func (s *RedisSink) Get(ctx context.Context, itemKey string) (*client.Item, error) {
	data, err := s.redis.Get(ctx, s.itemKey(itemKey)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var item client.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &item, nil
}

// Count returns the number of stored items.
func (s *RedisSink) Count(ctx context.Context) (int64, error) {
	return s.redis.SCard(ctx, s.IndexKey()).Result()
}

// Close implements Sink.
func (s *RedisSink) Close() error {
	return nil
}
