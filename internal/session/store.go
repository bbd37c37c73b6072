// Package session keeps server-side session records in redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

// Record is what a session id points at. Epoch is the user's session
// version observed when the session was issued.
type Record struct {
	UserID    uint      `json:"user_id"`
	RoleSlug  string    `json:"role_slug"`
	Epoch     int64     `json:"epoch"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, rec Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	Destroy(ctx context.Context, id string) error
	TTL() time.Duration
}

type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) TTL() time.Duration { return s.ttl }

func (s *RedisStore) Create(ctx context.Context, rec Record) (string, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	id := utils.RandomString(48)
	ok, err := s.client.SetNX(ctx, redisKey(id), data, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("session id collision")
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	payload, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Destroy removes the record. Missing ids are not an error.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func redisKey(id string) string {
	return "session:" + id
}
