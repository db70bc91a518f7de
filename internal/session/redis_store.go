package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(phone string) string {
	return fmt.Sprintf("session:%s", phone)
}

func (s *RedisStore) Save(ctx context.Context, phone string, data map[string]any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(phone), b, s.ttl).Err()
}

// Load returns nil when no session exists for the phone.
func (s *RedisStore) Load(ctx context.Context, phone string) (map[string]any, error) {
	raw, err := s.rdb.Get(ctx, key(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
