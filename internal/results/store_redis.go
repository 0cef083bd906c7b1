package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "call_result:"

// RedisStore keeps one value per correlation id with a retention TTL, which
// doubles as the pruning policy for abandoned sessions.
type RedisStore struct {
	rdb       *redis.Client
	retention time.Duration

	Now func() time.Time
}

func NewRedisStore(rdb *redis.Client, retention time.Duration) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("results: redis client is required")
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, retention: retention, Now: time.Now}, nil
}

func (s *RedisStore) key(correlationID string) (string, error) {
	if correlationID == "" {
		return "", ErrInvalidCorrelationID
	}
	return redisKeyPrefix + correlationID, nil
}

func (s *RedisStore) Save(ctx context.Context, correlationID, digit string) error {
	k, err := s.key(correlationID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(newCallResult(correlationID, digit, s.Now()))
	if err != nil {
		return fmt.Errorf("results: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, k, data, s.retention).Err(); err != nil {
		return fmt.Errorf("results: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, correlationID string) (string, bool, error) {
	k, err := s.key(correlationID)
	if err != nil {
		return "", false, err
	}
	data, err := s.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("results: redis get: %w", err)
	}
	var rec CallResult
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("results: decode: %w", err)
	}
	return rec.Digit, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, correlationID string) error {
	k, err := s.key(correlationID)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("results: redis del: %w", err)
	}
	return nil
}
