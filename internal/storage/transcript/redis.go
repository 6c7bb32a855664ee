package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// RedisStore keeps each chat's transcript in a Redis list, refreshed with a
// TTL on every append so abandoned chats age out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client. A non-positive ttl defaults
// to 30 days.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func transcriptKey(chatID string) string {
	return "transcript:" + chatID
}

// Append pushes the turn onto the tail of the chat's list.
func (s *RedisStore) Append(ctx context.Context, chatID string, turn chat.Turn) error {
	val, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := transcriptKey(chatID)
	if err := s.client.RPush(ctx, key, val).Err(); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return nil
}

// LoadRecent returns up to n most recent turns in chronological order.
func (s *RedisStore) LoadRecent(ctx context.Context, chatID string, n int) ([]chat.Turn, error) {
	if n <= 0 {
		n = 50
	}

	vals, err := s.client.LRange(ctx, transcriptKey(chatID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(vals))
	for _, val := range vals {
		var turn chat.Turn
		if err := json.Unmarshal([]byte(val), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
