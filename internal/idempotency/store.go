// Package idempotency replays completed responses to retried requests that
// carry the same Idempotency-Key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// Response is a completed response stored for replay.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Key scopes a client key to one user and one route.
func Key(userID uint, route, clientKey string) string {
	return fmt.Sprintf("idem:v1:%d:%s:%s", userID, route, clientKey)
}

// Claim marks key as in flight. It returns a nil Response when the caller now
// owns the key, the stored Response when the key already completed, and
// ErrInFlight otherwise.
func (s *Store) Claim(ctx context.Context, key string) (*Response, error) {
	ok, err := s.rdb.SetNX(ctx, key, pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if raw == pending {
		return nil, ErrInFlight
	}
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &resp, nil
}

// Complete stores resp for replay until the key expires.
func (s *Store) Complete(ctx context.Context, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

// Release frees key so the next request with it runs again.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
