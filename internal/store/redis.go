// internal/store/redis.go
//
// Redis-backed Store, for running several server instances behind one
// load balancer. Rounds are stored as JSON under "round:<id>" and expire
// after TTL so abandoned rounds do not pile up.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/mathle/internal/game"
)

// DefaultRoundTTL is how long an untouched round survives in either store.
const DefaultRoundTTL = 24 * time.Hour

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl uses DefaultRoundTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultRoundTTL
	}
	return &redisStore{client: client, ttl: ttl}
}

// OpenRedis parses a redis:// URL, connects, and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func roundKey(id string) string { return "round:" + id }

func (s *redisStore) Save(ctx context.Context, r *game.Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, roundKey(r.ID), data, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, id string) (*game.Round, error) {
	data, err := s.client.Get(ctx, roundKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r game.Round
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", id, err)
	}
	return &r, nil
}
